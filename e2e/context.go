package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config points the suite at a running server.
type Config struct {
	BaseURL    string
	SigningKey string
	Issuer     string
	Deployer   string
}

// TestContext is the per-scenario state shared by every step package.
type TestContext struct {
	cfg        Config
	http       *http.Client
	nonce      string
	principals map[string]string
	caller     string

	lastStatus int
	lastHeader http.Header
	lastBody   []byte
}

func NewTestContext(cfg Config) *TestContext {
	return &TestContext{
		cfg:        cfg,
		http:       &http.Client{Timeout: 10 * time.Second},
		nonce:      strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36)),
		principals: map[string]string{"deployer": cfg.Deployer},
		caller:     "deployer",
	}
}

// SetPrincipal names an address so features can refer to it as ${name}.
func (tc *TestContext) SetPrincipal(name, address string) {
	tc.principals[name] = address
}

// As makes name the caller of subsequent requests.
func (tc *TestContext) As(name string) error {
	if _, ok := tc.principals[name]; !ok {
		return fmt.Errorf("unknown principal %q", name)
	}
	tc.caller = name
	return nil
}

var (
	uniqueRef    = regexp.MustCompile(`([A-Za-z0-9-]+)@`)
	principalRef = regexp.MustCompile(`\$\{([A-Za-z0-9_-]+)\}`)
)

// Expand rewrites "ID@" to an identifier unique to this scenario and
// "${name}" to the named principal's address, so scenarios can share one
// long-running server.
func (tc *TestContext) Expand(s string) string {
	s = uniqueRef.ReplaceAllString(s, "${1}-"+tc.nonce)
	return principalRef.ReplaceAllStringFunc(s, func(m string) string {
		name := principalRef.FindStringSubmatch(m)[1]
		if addr, ok := tc.principals[name]; ok {
			return addr
		}
		return m
	})
}

// Request sends body as JSON. body may be nil, a raw JSON string or any
// value encoding/json accepts.
func (tc *TestContext) Request(ctx context.Context, method, path string, body any) error {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(tc.Expand(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(tc.cfg.BaseURL, "/")+tc.Expand(path), reader)
	if err != nil {
		return err
	}
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tc.caller != "" {
		token, err := tc.token(tc.principals[tc.caller])
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := tc.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	tc.lastStatus = resp.StatusCode
	tc.lastHeader = resp.Header
	tc.lastBody, err = io.ReadAll(resp.Body)
	return err
}

func (tc *TestContext) token(subject string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    tc.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		ID:        "e2e-" + strconv.FormatInt(now.UnixNano(), 36),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(tc.cfg.SigningKey))
}

func (tc *TestContext) LastStatus() int {
	return tc.lastStatus
}

func (tc *TestContext) LastHeader() http.Header {
	return tc.lastHeader
}

func (tc *TestContext) LastBody() []byte {
	return tc.lastBody
}

// ResponseField walks a dotted path such as "record.point" through the
// last JSON response.
func (tc *TestContext) ResponseField(path string) (any, error) {
	var doc any
	if err := json.Unmarshal(tc.lastBody, &doc); err != nil {
		return nil, fmt.Errorf("response is not JSON: %w", err)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := doc.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%s: %q is not an object", path, part)
		}
		if doc, ok = obj[part]; !ok {
			return nil, fmt.Errorf("%s: no field %q in %s", path, part, tc.lastBody)
		}
	}
	return doc, nil
}
