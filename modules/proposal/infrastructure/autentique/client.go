// Package autentique is a thin client over the e-signature provider's
// document protocol: upload a document with one mandatory signer, mint
// the signer's bearer link, and poll document status.
package autentique

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/seivahq/painel/modules/proposal/domain/ports"
)

const signerActionSign = "SIGN"

// HTTPError is a provider-reported rejection. Its code is surfaced
// verbatim to operators; these failures need account or credential
// intervention, not a user retry.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code(), msg)
}

func (e *HTTPError) Code() string {
	return fmt.Sprintf("autentique_http_%d", e.StatusCode)
}

// MalformedResponseError marks a 2xx response whose body did not carry
// what the protocol promises.
type MalformedResponseError struct {
	Op     string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("autentique: malformed %s response: %s", e.Op, e.Detail)
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL string, token string) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("autentique: missing base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("autentique: invalid base url")
	}
	if strings.TrimSpace(token) == "" {
		return nil, errors.New("autentique: missing api token")
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}, nil
}

type documentResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"`
	Signers []struct {
		ID     string `json:"id"`
		Email  string `json:"email"`
		Action string `json:"action"`
	} `json:"signers"`
}

// CreateDocument uploads the rendered file and registers one signer
// with a must-sign action. The provider may return extra signer-like
// entries (witnesses, observers); the entry matching the requested
// email and the SIGN action is selected, never position 0 blindly.
func (c *Client) CreateDocument(ctx context.Context, name string, signerName string, signerEmail string, file []byte) (ports.CreatedDocument, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	_ = mw.WriteField("name", name)
	_ = mw.WriteField("signer_name", signerName)
	_ = mw.WriteField("signer_email", signerEmail)
	_ = mw.WriteField("signer_action", signerActionSign)
	fw, err := mw.CreateFormFile("file", "contract.txt")
	if err != nil {
		return ports.CreatedDocument{}, err
	}
	if _, err := fw.Write(file); err != nil {
		return ports.CreatedDocument{}, err
	}
	if err := mw.Close(); err != nil {
		return ports.CreatedDocument{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/documents", &body)
	if err != nil {
		return ports.CreatedDocument{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ports.CreatedDocument{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return ports.CreatedDocument{}, readHTTPError(resp)
	}

	var out documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ports.CreatedDocument{}, &MalformedResponseError{Op: "create document", Detail: err.Error()}
	}
	if out.ID == "" {
		return ports.CreatedDocument{}, &MalformedResponseError{Op: "create document", Detail: "missing document id"}
	}

	wantEmail := strings.ToLower(strings.TrimSpace(signerEmail))
	for _, s := range out.Signers {
		if strings.ToLower(strings.TrimSpace(s.Email)) == wantEmail && s.Action == signerActionSign {
			if s.ID == "" {
				break
			}
			return ports.CreatedDocument{DocumentID: out.ID, SignerID: s.ID}, nil
		}
	}
	return ports.CreatedDocument{}, &MalformedResponseError{Op: "create document", Detail: "no signer entry for " + signerEmail}
}

func (c *Client) CreateSigningLink(ctx context.Context, signerID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/signers/"+url.PathEscape(signerID)+"/link", nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", readHTTPError(resp)
	}

	var out struct {
		Link string `json:"link"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &MalformedResponseError{Op: "create signing link", Detail: err.Error()}
	}
	if out.Link == "" {
		return "", &MalformedResponseError{Op: "create signing link", Detail: "missing link"}
	}
	return out.Link, nil
}

// GetStatus is advisory. A missing document or an undecodable body
// yields "" without an error; only transport failures propagate, and
// callers are expected to ignore those too.
func (c *Client) GetStatus(ctx context.Context, documentID string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/documents/"+url.PathEscape(documentID), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return "", nil
	}

	var out documentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", nil
	}
	return out.Status, nil
}

func readHTTPError(resp *http.Response) error {
	const maxBody = 4096
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	msg := strings.TrimSpace(string(b))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	return &HTTPError{StatusCode: resp.StatusCode, Message: msg}
}
