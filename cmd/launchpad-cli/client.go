package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"launchpad/core/types"
	"launchpad/crypto"
)

// apiError is the error body returned by launchpadd.
type apiError struct {
	Status  int
	Message string `json:"error"`
	Kind    string `json:"kind"`
}

func (e *apiError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

type apiClient struct {
	base string
	http *http.Client
}

func newAPIClient(base string) *apiClient {
	return &apiClient{
		base: strings.TrimRight(strings.TrimSpace(base), "/"),
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *apiClient) get(path string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *apiClient) post(path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		apiErr := &apiError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(raw, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if msg, ok := out.(*json.RawMessage); ok {
		*msg = append((*msg)[:0], raw...)
		return nil
	}
	return json.Unmarshal(raw, out)
}

// nonce fetches the next expected nonce of addr.
func (c *apiClient) nonce(addr [20]byte) (uint64, error) {
	var acc struct {
		Nonce uint64 `json:"nonce"`
	}
	if err := c.get("/v1/accounts/"+url.PathEscape(crypto.AddressFromArray(addr).String()), &acc); err != nil {
		return 0, fmt.Errorf("fetch nonce: %w", err)
	}
	return acc.Nonce, nil
}

// submit posts a signed operation and returns the raw receipt.
func (c *apiClient) submit(op *types.Operation) (json.RawMessage, error) {
	var receipt json.RawMessage
	if err := c.post("/v1/operations", op, &receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

func printJSON(w io.Writer, raw []byte) {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Fprintln(w, strings.TrimSpace(string(raw)))
		return
	}
	fmt.Fprintln(w, pretty.String())
}
