package http

import (
	"net/http"

	"confeitaria/internal/forms"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Products())
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var f forms.ProductForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := f.Product()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.CreateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.ProductForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := f.Product()
	if err != nil {
		writeError(w, r, err)
		return
	}
	p.ID = id
	updated, err := s.svc.UpdateProduct(r.Context(), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddVariant(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var f forms.VariantForm
	if err := decodeJSON(w, r, &f); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := f.Variant()
	if err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.AddVariant(r.Context(), id, v)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
