package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// PathstoreStore keeps artifacts as nodes in a pathstore key-value service,
// one node per artifact under a common prefix.
type PathstoreStore struct {
	baseURL    string
	apiKey     string
	prefix     string
	httpClient *http.Client
}

func NewPathstoreStore(baseURL, apiKey, prefix string) *PathstoreStore {
	if prefix == "" {
		prefix = "outliner/artifacts"
	}
	return &PathstoreStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		prefix:  strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// nodeRequest is the body for PUT /kv/{key}.
type nodeRequest struct {
	Value      artifact `json:"value"`
	MemoryType string   `json:"memory_type,omitempty"`
	Source     string   `json:"source,omitempty"`
}

type artifact struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

type nodeResponse struct {
	Key   string   `json:"key_path"`
	Value artifact `json:"value"`
}

// key maps an artifact name onto a single path segment. Dots separate
// segments in pathstore key paths, so they are replaced.
func (s *PathstoreStore) key(name string) string {
	return s.prefix + "/" + strings.ReplaceAll(name, ".", "_")
}

func (s *PathstoreStore) Put(ctx context.Context, name, content string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	body, err := json.Marshal(nodeRequest{
		Value:      artifact{Name: name, Content: content, UpdatedAt: time.Now().UTC()},
		MemoryType: "semantic",
		Source:     "outliner",
	})
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	resp, err := s.do(ctx, http.MethodPut, "/kv/"+s.key(name), body)
	if err != nil {
		return fmt.Errorf("put %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put "+name, resp)
	}
	return nil
}

func (s *PathstoreStore) Get(ctx context.Context, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	resp, err := s.do(ctx, http.MethodGet, "/kv/"+s.key(name), nil)
	if err != nil {
		return "", fmt.Errorf("get %s: %w", name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError("get "+name, resp)
	}

	var node nodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return "", fmt.Errorf("decode node: %w", err)
	}
	return node.Value.Content, nil
}

func (s *PathstoreStore) List(ctx context.Context) ([]Entry, error) {
	resp, err := s.do(ctx, http.MethodGet, "/kv/"+s.prefix+"/*", nil)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list", resp)
	}

	var result struct {
		Nodes []nodeResponse `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	entries := make([]Entry, 0, len(result.Nodes))
	for _, n := range result.Nodes {
		if n.Value.Name == "" {
			continue
		}
		entries = append(entries, Entry{
			Name:      n.Value.Name,
			Size:      int64(len(n.Value.Content)),
			UpdatedAt: n.Value.UpdatedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (s *PathstoreStore) Delete(ctx context.Context, name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	resp, err := s.do(ctx, http.MethodDelete, "/kv/"+s.key(name), nil)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return statusError("delete "+name, resp)
}

func (s *PathstoreStore) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, rd)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	return s.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(respBody))
}

// Close releases idle connections.
func (s *PathstoreStore) Close() {
	s.httpClient.CloseIdleConnections()
}
