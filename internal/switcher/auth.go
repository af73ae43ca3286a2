package switcher

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
)

type authRequired struct {
	AuthRequired bool   `json:"authRequired"`
	Challenge    string `json:"challenge"`
	Salt         string `json:"salt"`
}

// authenticate runs the GetAuthRequired / Authenticate handshake. A server
// without a password accepts requests right away.
func (c *Client) authenticate(ctx context.Context) error {
	var req authRequired
	if err := c.Call(ctx, "GetAuthRequired", nil, &req); err != nil {
		return fmt.Errorf("failed to query auth: %w", err)
	}
	if !req.AuthRequired {
		return nil
	}

	if c.cfg.Password == "" {
		return fmt.Errorf("%w: password required", ErrAuthFailed)
	}

	err := c.Call(ctx, "Authenticate", map[string]interface{}{
		"auth": authResponse(c.cfg.Password, req.Salt, req.Challenge),
	}, nil)
	if errors.Is(err, ErrRequestFailed) {
		return fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	return err
}

// authResponse computes base64(sha256(base64(sha256(password+salt)) + challenge)).
func authResponse(password, salt, challenge string) string {
	secret := sha256.Sum256([]byte(password + salt))
	secretB64 := base64.StdEncoding.EncodeToString(secret[:])

	auth := sha256.Sum256([]byte(secretB64 + challenge))
	return base64.StdEncoding.EncodeToString(auth[:])
}
