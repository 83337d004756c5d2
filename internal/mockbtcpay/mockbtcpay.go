package mockbtcpay

import (
	"sync/atomic"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/probstack/btcpay-harness/internal/monitoring"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// Options configures the embedded Greenfield emulator. FailEvery > 0 makes
// every Nth invoice creation return a 500, so partial-failure bookkeeping can
// be exercised end to end without a real BTCPay Server.
type Options struct {
	Addr      string
	APIKey    string
	StoreID   string
	FailEvery int
}

// Server emulates the slice of the Greenfield API the toolkit touches.
type Server struct {
	opts     Options
	logger   *logger.Logger
	registry *prometheus.Registry
	metrics  *monitoring.HTTPMetrics
	recorder *monitoring.BusinessMetricsRecorder

	// invoice creation attempts, drives the FailEvery counter
	invoices atomic.Int64
}

func New(opts Options, l *logger.Logger) *Server {
	registry := prometheus.NewRegistry()
	metrics := monitoring.NewHTTPMetrics()
	metrics.MustRegister(registry)

	return &Server{
		opts:     opts,
		logger:   l,
		registry: registry,
		metrics:  metrics,
		recorder: monitoring.NewBusinessMetricsRecorder(metrics),
	}
}

func setupCORS(r *gin.Engine) {
	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders: []string{
			"Origin", "Host", "Content-Type", "Content-Length", "Accept-Encoding", "Accept-Language", "Accept",
			"Authorization", "X-Requested-With",
		},
	}))
}

// Engine builds the gin engine. Tests mount it via httptest.NewServer.
func (s *Server) Engine() *gin.Engine {
	r := gin.New()
	r.Use(
		gin.LoggerWithWriter(gin.DefaultWriter, "/healthz", "/metrics"),
		gin.Recovery(),
		monitoring.HTTPMetricsMiddleware(s.metrics),
	)
	setupCORS(r)

	r.GET("/", s.handleRoot)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.Use(s.requireToken)
	{
		v1.GET("/stores", s.handleListStores)
		v1.GET("/stores/:storeId", s.handleGetStore)
		v1.POST("/stores/:storeId/invoices", s.handleCreateInvoice)
		v1.GET("/stores/:storeId/webhooks", s.handleListWebhooks)
		v1.GET("/stores/:storeId/payment-methods", s.handleListPaymentMethods)
	}

	return r
}

// Run binds the engine and blocks until the listener fails.
func (s *Server) Run() error {
	s.logger.Info("mock btcpay server listening", map[string]string{
		"addr":     s.opts.Addr,
		"store_id": s.opts.StoreID,
	})

	return s.Engine().Run(s.opts.Addr)
}

// InvoiceRequests returns how many invoice creations were attempted,
// injected failures included.
func (s *Server) InvoiceRequests() int64 {
	return s.invoices.Load()
}
