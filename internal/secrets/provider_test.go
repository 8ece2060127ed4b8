package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mapGetter map[string]string

func (m mapGetter) GetSecret(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestResolveSource(t *testing.T) {
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, "development"))
	assert.Equal(t, SourceEnvironment, ResolveSource(SourceAuto, ""))
	assert.Equal(t, SourceVault, ResolveSource(SourceAuto, "production"))
	assert.Equal(t, SourceVault, ResolveSource(SourceVault, "development"))
}

func TestProvider_GetSecretOrEnv_PrefersEnvironment(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	p := NewProviderWithGetter(SourceVault, mapGetter{"jwt-secret": "from-vault"}, zap.NewNop())

	value, err := p.GetSecretOrEnv(context.Background(), "jwt-secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)
}

func TestProvider_GetSecretOrEnv_FallsBackToVault(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	p := NewProviderWithGetter(SourceVault, mapGetter{"jwt-secret": "from-vault"}, zap.NewNop())

	value, err := p.GetSecretOrEnv(context.Background(), "jwt-secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)
	assert.True(t, p.IsVaultEnabled())
}

func TestProvider_EnvironmentSource_MissingVariable(t *testing.T) {
	t.Setenv("MISSING_SECRET", "")
	p := NewProviderWithGetter(SourceEnvironment, nil, zap.NewNop())

	_, err := p.GetSecret(context.Background(), "MISSING_SECRET")
	assert.Error(t, err)
}
