package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/nexo-studio/agency-api/internal/domain"
	"github.com/nexo-studio/agency-api/internal/http/handler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthHandler_Me(t *testing.T) {
	h := handler.NewAuthHandler(zap.NewNop())

	t.Run("authenticated", func(t *testing.T) {
		w := serve(h.Me, newRequest(staffContext(), http.MethodGet, "/api/v1/auth/me", nil, nil))

		require.Equal(t, http.StatusOK, w.Code)
		me := decode[domain.AuthUserDTO](t, w)
		assert.Equal(t, "Staff User", me.Name)
		assert.Equal(t, "staff@nexo.studio", me.Email)
		assert.Equal(t, []string{"staff"}, me.Roles)
		assert.NotEmpty(t, me.ID)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := serve(h.Me, newRequest(context.Background(), http.MethodGet, "/api/v1/auth/me", nil, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
