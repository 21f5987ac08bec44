package handlers

import (
	"context"
	"net/http"

	"github.com/shantanuk7/prism-film-observatory/internal/handlers/render"
	"github.com/shantanuk7/prism-film-observatory/internal/logger"
	"github.com/shantanuk7/prism-film-observatory/internal/models"
)

type adminService interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

func handleListUsers(admin adminService, l logger.Logger) http.Handler {
	type response struct {
		Users []userResponse `json:"users"`
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		users, err := admin.ListUsers(r.Context())
		if err != nil {
			l.Error("user listing failed", "error", err.Error())
			render.ServiceError(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		resp := response{Users: make([]userResponse, 0, len(users))}
		for _, u := range users {
			resp.Users = append(resp.Users, sanitizeUser(u))
		}

		render.JSON(w, resp)
	})
}
