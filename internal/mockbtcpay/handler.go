package mockbtcpay

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/probstack/btcpay-harness/internal/btcpay"
)

const storeName = "Load Test Store"

func (s *Server) requireToken(c *gin.Context) {
	if c.GetHeader("Authorization") != "token "+s.opts.APIKey {
		c.AbortWithStatusJSON(401, gin.H{
			"code":    "unauthorized",
			"message": "invalid API key",
		})
		return
	}

	c.Next()
}

// storeOr404 rejects requests against any store but the configured one.
func (s *Server) storeOr404(c *gin.Context) bool {
	if c.Param("storeId") != s.opts.StoreID {
		c.JSON(404, gin.H{
			"code":    "store-not-found",
			"message": "store not found",
		})
		return false
	}

	return true
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(200, gin.H{
		"status": "ready",
	})
}

func (s *Server) handleListStores(c *gin.Context) {
	c.JSON(200, []btcpay.Store{
		{ID: s.opts.StoreID, Name: storeName},
	})
}

func (s *Server) handleGetStore(c *gin.Context) {
	if !s.storeOr404(c) {
		return
	}

	c.JSON(200, btcpay.Store{ID: s.opts.StoreID, Name: storeName})
}

func (s *Server) handleCreateInvoice(c *gin.Context) {
	if !s.storeOr404(c) {
		return
	}

	start := time.Now()

	var req btcpay.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{
			"code":    "invalid-request",
			"message": err.Error(),
		})
		return
	}

	if req.Amount == "" || req.Currency == "" {
		c.JSON(422, gin.H{
			"code":    "invalid-amount",
			"message": "amount and currency are required",
		})
		return
	}

	attempt := s.invoices.Add(1)
	if s.opts.FailEvery > 0 && attempt%int64(s.opts.FailEvery) == 0 {
		s.recorder.RecordInjectedFailure()
		s.logger.Info("[handleCreateInvoice] injected failure", map[string]string{
			"attempt": strconv.FormatInt(attempt, 10),
			"orderID": req.Metadata.OrderID,
		})
		c.JSON(500, gin.H{
			"code":    "internal-error",
			"message": "injected failure",
		})
		return
	}

	now := time.Now()
	id := newInvoiceID()
	invoice := btcpay.Invoice{
		ID:             id,
		StoreID:        s.opts.StoreID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		Status:         "New",
		CheckoutLink:   "http://" + c.Request.Host + "/i/" + id,
		CreatedTime:    now.Unix(),
		ExpirationTime: now.Add(15 * time.Minute).Unix(),
	}

	s.recorder.RecordInvoiceCreation("success", time.Since(start).Seconds())
	c.JSON(200, invoice)
}

func (s *Server) handleListWebhooks(c *gin.Context) {
	if !s.storeOr404(c) {
		return
	}

	c.JSON(200, []btcpay.Webhook{})
}

func (s *Server) handleListPaymentMethods(c *gin.Context) {
	if !s.storeOr404(c) {
		return
	}

	c.JSON(200, []btcpay.PaymentMethod{
		{PaymentMethod: "BTC-CHAIN", CryptoCode: "BTC", Enabled: true},
		{PaymentMethod: "BTC-LN", CryptoCode: "BTC", Enabled: false},
	})
}

// newInvoiceID mimics the short opaque ids BTCPay hands out.
func newInvoiceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
}
