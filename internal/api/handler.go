// Package api exposes the item and order services over HTTP.
package api

import (
	"errors"
	"net/http"

	"orderdesk-be/internal/item"
	"orderdesk-be/internal/logger"
	"orderdesk-be/internal/metrics"
	"orderdesk-be/internal/order"
	"orderdesk-be/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type Handler struct {
	ItemSvc  item.Service
	OrderSvc order.Service
}

func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", Health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", Metrics).Methods(http.MethodGet)

	// items
	r.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	r.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	r.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	r.HandleFunc("/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	r.HandleFunc("/items/{id}", h.DeleteItem).Methods(http.MethodDelete)

	// orders
	r.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	r.HandleFunc("/orders", h.CreateOrder).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}", h.GetOrder).Methods(http.MethodGet)
	r.HandleFunc("/orders/{id}", h.ReplaceOrder).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc("/orders/{id}", h.DeleteOrder).Methods(http.MethodDelete)

	// line items
	r.HandleFunc("/orders/{id}/add_item", h.AddItem).Methods(http.MethodPost)
	r.HandleFunc("/orders/{id}/remove_item", h.RemoveItem).Methods(http.MethodPost, http.MethodDelete)
	r.HandleFunc("/orders/{id}/items/{item_id}", h.SetItemQuantity).Methods(http.MethodPut)

	return r
}

func Health(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func Metrics(w http.ResponseWriter, r *http.Request) {
	utils.WriteJSON(w, http.StatusOK, metrics.Snapshot())
}

func pathID(r *http.Request, key string) (int64, error) {
	return utils.ParseID(mux.Vars(r)[key])
}

// writeError maps service errors onto status codes. Anything that is not a
// known client or lookup failure is a 500 and its detail stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, utils.ErrInvalidJSON),
		item.IsValidation(err),
		order.IsValidation(err):
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, order.ErrLineItemNotFound),
		errors.Is(err, item.ErrItemNotFound):
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
	default:
		logger.FromCtx(r.Context()).Error("request failed", zap.Error(err))
		utils.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}
