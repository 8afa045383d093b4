package handler

import (
	appfiscal "github.com/erp/fiscal/internal/application/fiscal"
	"github.com/erp/fiscal/internal/domain/fiscal"
	"github.com/erp/fiscal/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BookHandler serves the IVA sales and purchase books. The :book path
// segment is either sales or purchase.
type BookHandler struct {
	BaseHandler
	books *appfiscal.BookService
}

// NewBookHandler creates a new BookHandler
func NewBookHandler(books *appfiscal.BookService) *BookHandler {
	return &BookHandler{books: books}
}

// bookTarget holds the resolved parameters of a book route
type bookTarget struct {
	actor shared.Actor
	book  fiscal.Book
	id    uuid.UUID
}

func (h *BookHandler) bookFrom(c *gin.Context) (fiscal.Book, bool) {
	switch book := fiscal.Book(c.Param("book")); book {
	case fiscal.SalesBook, fiscal.PurchaseBook:
		return book, true
	}
	h.BadRequest(c, "Invalid book: must be sales or purchase")
	return "", false
}

// entryTarget resolves the actor, book and :id of an entry route
func (h *BookHandler) entryTarget(c *gin.Context) (bookTarget, bool) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return bookTarget{}, false
	}
	book, ok := h.bookFrom(c)
	if !ok {
		return bookTarget{}, false
	}
	id, ok := h.pathID(c, "id")
	if !ok {
		return bookTarget{}, false
	}
	return bookTarget{actor: actor, book: book, id: id}, true
}

// CreateEntry handles POST /books/:book/entries
func (h *BookHandler) CreateEntry(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	book, ok := h.bookFrom(c)
	if !ok {
		return
	}
	var req appfiscal.BookEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.books.CreateEntry(c.Request.Context(), actor.TenantID, actor, book, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, entry)
}

// UpdateEntry handles PUT /books/:book/entries/:id
func (h *BookHandler) UpdateEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	var req appfiscal.BookEntryRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.books.UpdateEntry(c.Request.Context(), t.actor.TenantID, t.actor, t.book, t.id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ConfirmEntry handles POST /books/:book/entries/:id/confirm
func (h *BookHandler) ConfirmEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	entry, err := h.books.ConfirmEntry(c.Request.Context(), t.actor.TenantID, t.book, t.id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// AnnulEntry handles POST /books/:book/entries/:id/annul
func (h *BookHandler) AnnulEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	var req appfiscal.AnnulRequest
	if !h.bindJSON(c, &req) {
		return
	}
	entry, err := h.books.AnnulEntry(c.Request.Context(), t.actor.TenantID, t.actor, t.book, t.id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// DeleteEntry handles DELETE /books/:book/entries/:id
func (h *BookHandler) DeleteEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	if err := h.books.DeleteEntry(c.Request.Context(), t.actor.TenantID, t.book, t.id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// GetEntry handles GET /books/:book/entries/:id
func (h *BookHandler) GetEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	entry, err := h.books.GetEntry(c.Request.Context(), t.actor.TenantID, t.book, t.id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// ValidateEntry handles GET /books/:book/entries/:id/validate
func (h *BookHandler) ValidateEntry(c *gin.Context) {
	t, ok := h.entryTarget(c)
	if !ok {
		return
	}
	result, err := h.books.ValidateEntry(c.Request.Context(), t.actor.TenantID, t.book, t.id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListEntries handles GET /books/:book/entries
func (h *BookHandler) ListEntries(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	book, ok := h.bookFrom(c)
	if !ok {
		return
	}
	var filter appfiscal.BookListFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	page, err := h.books.ListEntries(c.Request.Context(), actor.TenantID, book, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// monthTarget resolves the actor, book and ?month=&year= of a book route
func (h *BookHandler) monthTarget(c *gin.Context) (bookTarget, appfiscal.MonthQuery, bool) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return bookTarget{}, appfiscal.MonthQuery{}, false
	}
	book, ok := h.bookFrom(c)
	if !ok {
		return bookTarget{}, appfiscal.MonthQuery{}, false
	}
	var q appfiscal.MonthQuery
	if !h.bindQuery(c, &q) {
		return bookTarget{}, appfiscal.MonthQuery{}, false
	}
	return bookTarget{actor: actor, book: book}, q, true
}

// GetBook handles GET /books/:book?month=&year=
func (h *BookHandler) GetBook(c *gin.Context) {
	t, q, ok := h.monthTarget(c)
	if !ok {
		return
	}
	resp, err := h.books.GetBook(c.Request.Context(), t.actor.TenantID, t.book, q.Month, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Summary handles GET /books/:book/summary?month=&year=
func (h *BookHandler) Summary(c *gin.Context) {
	t, q, ok := h.monthTarget(c)
	if !ok {
		return
	}
	summary, err := h.books.Summary(c.Request.Context(), t.actor.TenantID, t.book, q.Month, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Validate handles GET /books/:book/validate?month=&year=
func (h *BookHandler) Validate(c *gin.Context) {
	t, q, ok := h.monthTarget(c)
	if !ok {
		return
	}
	result, err := h.books.ValidateBook(c.Request.Context(), t.actor.TenantID, t.book, q.Month, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Export handles POST /books/:book/export?month=&year=. Confirmed rows of the
// month move to exported.
func (h *BookHandler) Export(c *gin.Context) {
	t, q, ok := h.monthTarget(c)
	if !ok {
		return
	}
	result, err := h.books.ExportTXT(c.Request.Context(), t.actor.TenantID, t.book, q.Month, q.Year)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.sendExport(c, result)
}

// Resync handles POST /sales-sync/:documentId. The last payload
// received for the document is reconciled again.
func (h *BookHandler) Resync(c *gin.Context) {
	actor, ok := h.actorFrom(c)
	if !ok {
		return
	}
	documentID, ok := h.pathID(c, "documentId")
	if !ok {
		return
	}
	result, err := h.books.SyncFromBillingDocument(c.Request.Context(), actor.TenantID, documentID, nil, actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
