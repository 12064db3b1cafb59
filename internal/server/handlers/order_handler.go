package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/mamadbah2/hotelerp/internal/domain/models"
	"github.com/mamadbah2/hotelerp/internal/repository/gcs"
	"github.com/mamadbah2/hotelerp/internal/service/procurement"
)

const billFormField = "bill"

// OrderService runs the procurement order workflow.
type OrderService interface {
	Create(ctx context.Context, actor primitive.ObjectID, in procurement.CreateInput) (*models.ProcurementOrder, error)
	Review(ctx context.Context, actor, id primitive.ObjectID, in procurement.ReviewInput) (*models.ProcurementOrder, error)
	Receive(ctx context.Context, actor, id primitive.ObjectID) (*procurement.ReceiptStatus, error)
	AttachBill(ctx context.Context, actor, id primitive.ObjectID, billURL string) (*models.ProcurementOrder, error)
	UploadBill(ctx context.Context, actor, id primitive.ObjectID, filename, contentType string, body io.Reader) (*models.ProcurementOrder, error)
	Pay(ctx context.Context, actor, id primitive.ObjectID, in procurement.PayInput) (*models.ProcurementOrder, error)
	Get(ctx context.Context, id primitive.ObjectID) (*models.ProcurementOrder, error)
	List(ctx context.Context, filter models.OrderFilter) ([]models.ProcurementOrder, error)
}

// OrderHandler serves /procurement-orders.
type OrderHandler struct {
	svc            OrderService
	maxUploadBytes int64
	loc            *time.Location
	logger         *zap.Logger
}

// NewOrderHandler constructs the HTTP handler adapter. maxUploadBytes bounds bill uploads.
func NewOrderHandler(svc OrderService, maxUploadBytes int64, loc *time.Location, logger *zap.Logger) *OrderHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, maxUploadBytes: maxUploadBytes, loc: loc, logger: logger}
}

func (h *OrderHandler) Create(c *gin.Context) {
	var in procurement.CreateInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	order, err := h.svc.Create(c.Request.Context(), actorID(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

func (h *OrderHandler) List(c *gin.Context) {
	vendorID, err := queryID(c, "vendor_id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	from, to, err := queryRange(c, h.loc)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	orders, err := h.svc.List(c.Request.Context(), models.OrderFilter{
		Status:   models.OrderStatus(c.Query("status")),
		VendorID: vendorID,
		From:     from,
		To:       to,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": orders})
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	order, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Review records the MD's decision on the whole order or on single lines.
func (h *OrderHandler) Review(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var in procurement.ReviewInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	order, err := h.svc.Review(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// Receive posts approved lines that did not reach the store during review.
func (h *OrderHandler) Receive(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	status, err := h.svc.Receive(c.Request.Context(), actorID(c), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type attachBillRequest struct {
	BillURL string `json:"bill_url" binding:"required"`
}

// SubmitBill sends an approved order for payment. It takes either a multipart upload in the
// "bill" field or a JSON body carrying an already hosted bill_url.
func (h *OrderHandler) SubmitBill(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.uploadBill(c, id)
		return
	}

	var req attachBillRequest
	if !bindJSON(c, h.logger, &req) {
		return
	}
	order, err := h.svc.AttachBill(c.Request.Context(), actorID(c), id, req.BillURL)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) uploadBill(c *gin.Context, id primitive.ObjectID) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile(billFormField)
	if err != nil {
		h.logger.Debug("bill upload rejected", zap.Error(err))
		respondError(c, h.logger, models.Invalid(billFormField, "a bill file is required"))
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !gcs.AllowedContentType(contentType) {
		respondError(c, h.logger, models.Invalid(billFormField, "must be a PDF or an image"))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	defer file.Close()

	order, err := h.svc.UploadBill(c.Request.Context(), actorID(c), id, header.Filename, contentType, file)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *OrderHandler) Pay(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	var in procurement.PayInput
	if !bindJSON(c, h.logger, &in) {
		return
	}
	order, err := h.svc.Pay(c.Request.Context(), actorID(c), id, in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, order)
}
