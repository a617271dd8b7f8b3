package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	pderrors "peerdesk/errors"
)

func TestDirectiveToken_RoundTrip(t *testing.T) {
	req := require.New(t)
	secret := []byte("a-32-byte-session-secret-1234567")

	token, err := MintDirective(secret, "guest-1", GrantKick)
	req.NoError(err)

	req.NoError(VerifyDirective(secret, token, "guest-1", GrantKick))
}

func TestDirectiveToken_Rejects_Wrong_Target(t *testing.T) {
	req := require.New(t)
	secret := []byte("a-32-byte-session-secret-1234567")

	token, err := MintDirective(secret, "guest-1", GrantKick)
	req.NoError(err)

	err = VerifyDirective(secret, token, "guest-2", GrantKick)
	req.ErrorIs(err, pderrors.ErrBadDirective)
}

func TestDirectiveToken_Rejects_Wrong_Grant(t *testing.T) {
	req := require.New(t)
	secret := []byte("a-32-byte-session-secret-1234567")

	token, err := MintDirective(secret, "guest-1", GrantRole+":editor")
	req.NoError(err)

	err = VerifyDirective(secret, token, "guest-1", GrantKick)
	req.ErrorIs(err, pderrors.ErrBadDirective)
}

func TestDirectiveToken_Rejects_Foreign_Secret(t *testing.T) {
	req := require.New(t)

	token, err := MintDirective([]byte("secret-one"), "guest-1", GrantKick)
	req.NoError(err)

	err = VerifyDirective([]byte("secret-two"), token, "guest-1", GrantKick)
	req.ErrorIs(err, pderrors.ErrBadDirective)
}

func TestDirectiveToken_Faith_Without_Secret(t *testing.T) {
	req := require.New(t)

	// A session that has not yet received the snapshot secret accepts
	// directives on connection identity alone.
	req.NoError(VerifyDirective(nil, "whatever", "guest-1", GrantKick))
}
