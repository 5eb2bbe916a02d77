package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"orderdesk-be/internal/order"
	"orderdesk-be/internal/utils"
)

const viewShort = "short"

type removeItemRequest struct {
	ID *int64 `json:"id"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// ListOrders supports ?status= (exact match) and ?view=short,
// which drops line items from each entry.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	orders, err := h.OrderSvc.ListOrders(r.Context(), q.Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	if q.Get("view") == viewShort {
		out := make([]*order.ShortOrder, 0, len(orders))
		for _, o := range orders {
			out = append(out, order.ToShortOrder(o))
		}
		utils.WriteJSON(w, http.StatusOK, out)
		return
	}

	out := make([]*order.ReadOrder, 0, len(orders))
	for _, o := range orders {
		out = append(out, order.ToReadOrder(o))
	}
	utils.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	o, err := h.OrderSvc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToReadOrder(o))
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var in order.WriteOrderInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.OrderSvc.CreateOrder(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order.ToReadOrder(o))
}

// ReplaceOrder serves both PUT and PATCH; either way the body replaces the
// order's fields and its whole items list.
func (h *Handler) ReplaceOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	var in order.WriteOrderInput
	if err := utils.DecodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.OrderSvc.ReplaceOrder(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToReadOrder(o))
}

func (h *Handler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	if err := h.OrderSvc.DeleteOrder(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	var raw json.RawMessage
	if err := utils.DecodeJSON(r, &raw); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.OrderSvc.AddItem(r.Context(), id, raw)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order.ToReadOrder(o))
}

func (h *Handler) SetItemQuantity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}
	itemID, err := pathID(r, "item_id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	var body setQuantityRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.OrderSvc.SetItemQuantity(r.Context(), id, itemID, body.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order.ToReadOrder(o))
}

// RemoveItem answers 400 when the item is not part of the order; only a
// missing order is a 404.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	var body removeItemRequest
	if err := utils.DecodeJSON(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	if body.ID == nil {
		utils.WriteJSONError(w, "id is required", http.StatusBadRequest)
		return
	}

	err = h.OrderSvc.RemoveItem(r.Context(), id, *body.ID)
	if errors.Is(err, order.ErrLineItemNotFound) {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
