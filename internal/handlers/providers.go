package handlers

import "net/http"

// ModelsResponse lists the configured model providers.
type ModelsResponse struct {
	Default   string   `json:"default"`
	Providers []string `json:"providers"`
}

// ListModels returns the provider keys accepted by the plan endpoint.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, ModelsResponse{
		Default:   h.models.Default(),
		Providers: h.models.Providers(),
	})
}
