package dppcrypto

import (
	"bytes"
	"crypto/ecdh"
	"crypto/rand"
	"testing"

	"github.com/meshonboard/ec-go/pkg/bootstrap"
	"github.com/meshonboard/ec-go/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func handshake(t *testing.T) (Initiator, Responder, frame.Attributes, frame.Attributes) {
	t.Helper()

	own, err := bootstrap.Generate()
	require.NoError(t, err)

	suite := DefaultSuite()
	ini, err := suite.Initiate(own.Public())
	require.NoError(t, err)
	resp, err := suite.Respond(own)
	require.NoError(t, err)

	req, err := ini.Request()
	require.NoError(t, err)
	answer, err := resp.Respond(req)
	require.NoError(t, err)
	return ini, resp, req, answer
}

func TestHandshake(t *testing.T) {
	ini, resp, _, answer := handshake(t)

	confirm, ik, err := ini.Confirm(answer)
	require.NoError(t, err)

	rk, err := resp.Finish(confirm)
	require.NoError(t, err)
	assert.Equal(t, ik.Fingerprint(), rk.Fingerprint())

	wrapped, err := ik.Seal([]byte{0xAA}, frame.Attributes{}.Add(frame.AttrEnrolleeNonce, []byte("hello")))
	require.NoError(t, err)
	got, err := rk.Open([]byte{0xAA}, wrapped)
	require.NoError(t, err)
	v, _ := got.Get(frame.AttrEnrolleeNonce)
	assert.Equal(t, []byte("hello"), v)

	_, err = rk.Open([]byte{0xAB}, wrapped)
	assert.ErrorIs(t, err, ErrUnwrap)
}

func TestRespondRejectsOtherBootstrapKey(t *testing.T) {
	_, _, req, _ := handshake(t)

	other, err := bootstrap.Generate()
	require.NoError(t, err)
	resp, err := DefaultSuite().Respond(other)
	require.NoError(t, err)

	_, err = resp.Respond(req)
	assert.ErrorIs(t, err, ErrNotForUs)
}

func TestConfirmRejectsTamperedResponse(t *testing.T) {
	ini, _, _, answer := handshake(t)

	tampered := make(frame.Attributes, len(answer))
	copy(tampered, answer)
	for i, a := range tampered {
		if a.ID == frame.AttrWrappedData {
			v := append([]byte(nil), a.Value...)
			v[len(v)-1] ^= 0xFF
			tampered[i].Value = v
		}
	}

	_, _, err := ini.Confirm(tampered)
	assert.ErrorIs(t, err, ErrUnwrap)
}

func TestConfirmRejectsFailureStatus(t *testing.T) {
	ini, _, _, _ := handshake(t)

	var attrs frame.Attributes
	attrs = attrs.AddStatus(frame.StatusNotCompatible)
	_, _, err := ini.Confirm(attrs)
	assert.ErrorIs(t, err, ErrPeerStatus)
}

func TestFinishRejectsWrongConfirm(t *testing.T) {
	ini, resp, _, answer := handshake(t)
	confirm, _, err := ini.Confirm(answer)
	require.NoError(t, err)

	// A confirm from a different handshake must not verify.
	ini2, _, _, answer2 := handshake(t)
	confirm2, _, err := ini2.Confirm(answer2)
	require.NoError(t, err)

	_, err = resp.Finish(confirm2)
	assert.Error(t, err)

	_, err = resp.Finish(confirm)
	assert.NoError(t, err)
}

func TestHandshakeOutOfOrder(t *testing.T) {
	own, err := bootstrap.Generate()
	require.NoError(t, err)

	ini, err := DefaultSuite().Initiate(own)
	require.NoError(t, err)
	_, _, err = ini.Confirm(nil)
	assert.ErrorIs(t, err, ErrBadState)

	resp, err := DefaultSuite().Respond(own)
	require.NoError(t, err)
	_, err = resp.Finish(nil)
	assert.ErrorIs(t, err, ErrBadState)

	_, err = DefaultSuite().Respond(own.Public())
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestReconfigureAndIntroductionKeys(t *testing.T) {
	a, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	b, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	s := DefaultSuite()
	c, e := []byte("c-nonce"), []byte("e-nonce")
	ka, err := s.Reconfigure(a, b.PublicKey(), c, e)
	require.NoError(t, err)
	kb, err := s.Reconfigure(b, a.PublicKey(), c, e)
	require.NoError(t, err)
	assert.Equal(t, ka.Fingerprint(), kb.Fingerprint())

	pa, err := s.IntroductionKey(a, b.PublicKey())
	require.NoError(t, err)
	pb, err := s.IntroductionKey(b, a.PublicKey())
	require.NoError(t, err)
	assert.True(t, bytes.Equal(pa, pb))
	assert.Len(t, pa, KeySize)
}

func TestPointEncoding(t *testing.T) {
	k, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)

	p := EncodePoint(k.PublicKey())
	assert.Len(t, p, 64)
	got, err := DecodePoint(p)
	require.NoError(t, err)
	assert.True(t, got.Equal(k.PublicKey()))

	_, err = DecodePoint(p[:10])
	assert.ErrorIs(t, err, ErrInvalidKey)
}
