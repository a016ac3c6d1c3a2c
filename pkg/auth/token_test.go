package auth

import (
	"testing"
	"time"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCfg = Config{Secret: "s3cret", TTL: time.Hour}

func TestMintAndParse(t *testing.T) {
	token, err := MintAccessToken(testCfg, time.Now(), "mgr-1", domain.RoleManager)
	require.NoError(t, err)

	claims, err := ParseAccessToken(testCfg, token)
	require.NoError(t, err)
	assert.Equal(t, domain.Actor{StaffID: "mgr-1", Role: domain.RoleManager}, claims.Actor())
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	old, err := MintAccessToken(testCfg, time.Now().Add(-2*time.Hour), "st-1", domain.RoleStaff)
	require.NoError(t, err)
	_, err = ParseAccessToken(testCfg, old)
	assert.Error(t, err)

	token, err := MintAccessToken(testCfg, time.Now(), "st-1", domain.RoleStaff)
	require.NoError(t, err)
	_, err = ParseAccessToken(Config{Secret: "other", TTL: time.Hour}, token)
	assert.Error(t, err)
	_, err = ParseAccessToken(Config{Secret: "s3cret", Issuer: "elsewhere"}, token)
	assert.Error(t, err)
}

func TestMintValidatesInput(t *testing.T) {
	_, err := MintAccessToken(Config{TTL: time.Hour}, time.Now(), "a", domain.RoleStaff)
	assert.Error(t, err)
	_, err = MintAccessToken(Config{Secret: "x"}, time.Now(), "a", domain.RoleStaff)
	assert.Error(t, err)
	_, err = MintAccessToken(testCfg, time.Now(), " ", domain.RoleStaff)
	assert.Error(t, err)
	_, err = MintAccessToken(testCfg, time.Now(), "a", domain.Role("owner"))
	assert.Error(t, err)
}
