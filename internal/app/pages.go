package app

import (
	"log/slog"
	"net/http"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
	"github.com/ledgerdesk/ledgerdesk/internal/guard"
	"github.com/ledgerdesk/ledgerdesk/internal/modules"
	"github.com/ledgerdesk/ledgerdesk/internal/shared"
	"github.com/ledgerdesk/ledgerdesk/internal/view"
)

type pageHandler struct {
	logger    *slog.Logger
	templates *view.Engine
	client    *guard.Client
}

type areaLink struct {
	Resource  authz.Resource
	Path      string
	State     string
	Available bool
}

type areaRow struct {
	Resource authz.Resource
	Actions  []authz.Action
}

// areaLinks lists every resource page with the reason it is or is not
// reachable, so the workspace never links to a page that would redirect.
func areaLinks(access guard.Access) []areaLink {
	links := make([]areaLink, 0, len(authz.Resources()))
	for _, res := range authz.Resources() {
		link := areaLink{Resource: res, Path: AreaPath(res), State: "allowed"}
		switch {
		case !access.Can(res, authz.ActionView):
			link.State = "forbidden"
		default:
			if module, ok := modules.ModuleFor(res); ok {
				link.State = access.ModuleState(module).String()
			}
		}
		link.Available = link.State == "allowed"
		links = append(links, link)
	}
	return links
}

func (h pageHandler) home(w http.ResponseWriter, r *http.Request) {
	data := h.baseData(r, "Workspace")
	if authz.ActorFromContext(r.Context()) != nil {
		access, err := h.client.Access(r.Context())
		if err != nil {
			return
		}
		data.Data = map[string]any{"Areas": areaLinks(access)}
	}
	h.render(w, "pages/home.html", data)
}

func (h pageHandler) area(res authz.Resource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		access, err := h.client.Access(r.Context())
		if err != nil {
			return
		}
		row := areaRow{Resource: res}
		for _, action := range authz.Actions() {
			if access.Can(res, action) {
				row.Actions = append(row.Actions, action)
			}
		}
		data := h.baseData(r, string(res))
		data.Data = map[string]any{"Rows": []areaRow{row}}
		h.render(w, "pages/area.html", data)
	}
}

func (h pageHandler) baseData(r *http.Request, title string) view.TemplateData {
	data := view.TemplateData{Title: title, CurrentPath: r.URL.Path}
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		data.Flash = sess.PopFlash()
	}
	return data
}

func (h pageHandler) render(w http.ResponseWriter, page string, data view.TemplateData) {
	if err := h.templates.Render(w, page, data); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}
