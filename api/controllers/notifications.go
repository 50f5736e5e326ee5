package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/api/middleware"
	"github.com/angelmondragon/droppoint-backend/api/responses"
	"github.com/angelmondragon/droppoint-backend/api/validators"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/pagination"
)

type feedAction func(r *http.Request, svc notifications.Service, viewer notifications.Viewer) (any, error)

// feedEndpoint resolves the caller's feed before running action.
func feedEndpoint(svc notifications.Service, logg *logger.Logger, action feedAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := func() (any, error) {
			if svc == nil {
				return nil, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable")
			}
			userID, role, err := middleware.CallerFromContext(r.Context())
			if err != nil {
				return nil, err
			}
			viewer, err := notifications.ViewerFor(userID, role)
			if err != nil {
				return nil, err
			}
			return action(r, svc, viewer)
		}()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListNotifications returns the caller's order feed, newest first.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return feedEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, viewer notifications.Viewer) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unread, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), notifications.ListParams{
			Viewer:     viewer,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
			UnreadOnly: unread,
		})
	})
}

func MarkNotificationRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return feedEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, viewer notifications.Viewer) (any, error) {
		id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "notificationId")))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid notification id")
		}
		if err := svc.MarkRead(r.Context(), viewer, id); err != nil {
			return nil, err
		}
		return map[string]bool{"read": true}, nil
	})
}

func MarkAllNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return feedEndpoint(svc, logg, func(r *http.Request, svc notifications.Service, viewer notifications.Viewer) (any, error) {
		n, err := svc.MarkAllRead(r.Context(), viewer)
		if err != nil {
			return nil, err
		}
		return map[string]int64{"updated": n}, nil
	})
}
