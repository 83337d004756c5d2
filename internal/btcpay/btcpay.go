package btcpay

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

const requestTimeout = 30 * time.Second

type BtcPay struct {
	baseURL string
	storeID string
	client  *resty.Client
	logger  *logger.Logger
}

// New returns a Greenfield API client bound to the configured store. Every
// request carries the token header and the fixed request timeout.
func New(appConfig *config.AppConfig, l *logger.Logger) IBtcPay {
	client := resty.New().
		SetTimeout(requestTimeout).
		SetHeader("Authorization", "token "+appConfig.BTCPay.APIKey).
		SetHeader("Content-Type", "application/json")

	return &BtcPay{
		baseURL: strings.TrimRight(appConfig.BTCPay.BaseURL, "/"),
		storeID: appConfig.BTCPay.StoreID,
		client:  client,
		logger:  l,
	}
}

func (b *BtcPay) StoreID() string {
	return b.storeID
}

func (b *BtcPay) Ping() error {
	resp, err := b.client.R().Get(b.baseURL)
	if err != nil {
		b.logger.Error("[Ping][client.Get]", map[string]string{
			"baseURL": b.baseURL,
			"error":   err.Error(),
		})
		return errors.Wrap(err, "server unreachable")
	}

	if resp.StatusCode() != 200 {
		return &APIError{StatusCode: resp.StatusCode()}
	}

	return nil
}

func (b *BtcPay) CreateInvoice(req *CreateInvoiceRequest) (*Invoice, error) {
	resp, err := b.client.R().
		SetBody(req).
		Post(b.storeURL("/invoices"))
	if err != nil {
		b.logger.Error("[CreateInvoice][client.Post]", map[string]string{
			"orderID": req.Metadata.OrderID,
			"error":   err.Error(),
		})
		return nil, errors.Wrap(err, "invoice request failed")
	}

	if resp.StatusCode() != 200 {
		apiErr := responseError(resp)
		b.logger.Error("[CreateInvoice] rejected", map[string]string{
			"orderID":    req.Metadata.OrderID,
			"statusCode": strconv.Itoa(apiErr.StatusCode),
			"message":    apiErr.Message,
		})
		return nil, apiErr
	}

	invoice := &Invoice{}
	if err := json.Unmarshal(resp.Body(), invoice); err != nil {
		return nil, errors.Wrap(err, "failed to parse invoice response")
	}

	return invoice, nil
}

func (b *BtcPay) GetStore() (*Store, error) {
	store := &Store{}
	if err := b.getJSON(b.storeURL(""), "GetStore", store); err != nil {
		return nil, err
	}

	return store, nil
}

func (b *BtcPay) ListStores() ([]Store, error) {
	var stores []Store
	if err := b.getJSON(b.baseURL+"/api/v1/stores", "ListStores", &stores); err != nil {
		return nil, err
	}

	return stores, nil
}

func (b *BtcPay) ListWebhooks() ([]Webhook, error) {
	var webhooks []Webhook
	if err := b.getJSON(b.storeURL("/webhooks"), "ListWebhooks", &webhooks); err != nil {
		return nil, err
	}

	return webhooks, nil
}

func (b *BtcPay) ListPaymentMethods() ([]PaymentMethod, error) {
	var methods []PaymentMethod
	if err := b.getJSON(b.storeURL("/payment-methods"), "ListPaymentMethods", &methods); err != nil {
		return nil, err
	}

	return methods, nil
}

func (b *BtcPay) storeURL(suffix string) string {
	return b.baseURL + "/api/v1/stores/" + b.storeID + suffix
}

func (b *BtcPay) getJSON(url, tag string, out any) error {
	resp, err := b.client.R().Get(url)
	if err != nil {
		b.logger.Error("["+tag+"][client.Get]", map[string]string{
			"url":   url,
			"error": err.Error(),
		})
		return errors.Wrap(err, "request failed")
	}

	if resp.StatusCode() != 200 {
		return responseError(resp)
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		b.logger.Error("["+tag+"][json.Unmarshal]", map[string]string{
			"url":   url,
			"error": err.Error(),
		})
		return errors.Wrap(err, "failed to parse response")
	}

	return nil
}

// responseError lifts the Greenfield error body into an APIError, falling
// back to the raw body when it is not the documented {code, message} shape.
func responseError(resp *resty.Response) *APIError {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	msg := ""
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		msg = body.Message
	} else if len(resp.Body()) > 0 {
		msg = strings.TrimSpace(string(resp.Body()))
	}

	return &APIError{StatusCode: resp.StatusCode(), Message: msg}
}
