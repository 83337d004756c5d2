package blockstream

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// ErrTxNotFound is returned by GetTransaction when no node in the endpoint
// list knows the transaction yet.
var ErrTxNotFound = errors.New("transaction not found")

var minFeeRegex = regexp.MustCompile(`sendrawtransaction RPC error -26: min relay fee not met, (\d+) < (\d+)`)

const maxRetries = 3

type blockstream struct {
	baseURLs []string
	client   *http.Client
	logger   *logger.Logger
}

// DefaultEndpoints lists the public esplora instances queried when the
// configuration does not pin its own.
func DefaultEndpoints(network string) []string {
	switch network {
	case "mainnet", "bitcoin":
		return []string{
			"https://blockstream.info/api",
			"https://mempool.space/api",
		}
	default:
		return []string{
			"https://blockstream.info/testnet/api",
			"https://mempool.space/testnet/api",
		}
	}
}

func New(cfg *config.AppConfig, logger *logger.Logger) IBlockStream {
	baseURLs := cfg.Bitcoin.EsploraAPIURLs
	if len(baseURLs) == 0 {
		baseURLs = DefaultEndpoints(cfg.Bitcoin.Network)
	}

	return &blockstream{
		baseURLs: baseURLs,
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger,
	}
}

// BroadcastTx walks the endpoint list and returns as soon as one node accepts
// the transaction. A min-relay-fee rejection aborts the walk because the
// transaction itself has to be rebuilt with a higher fee.
func (c *blockstream) BroadcastTx(txHex string) (string, error) {
	var lastErr error

	for i, base := range c.baseURLs {
		url := fmt.Sprintf("%s/tx", base)

		// New reader per endpoint since it gets consumed
		req, err := http.NewRequest("POST", url, strings.NewReader(txHex))
		if err != nil {
			lastErr = fmt.Errorf("failed to create request: %v", err)
			c.logger.Error("[BroadcastTx][http.NewRequest]", map[string]string{
				"error":    err.Error(),
				"endpoint": base,
			})
			continue
		}
		req.Header.Add("Content-Type", "text/plain")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("failed to request broadcast transaction: %v", err)
			c.logger.Error("[BroadcastTx][client.Do]", map[string]string{
				"error":    err.Error(),
				"endpoint": base,
			})
			if i < len(c.baseURLs)-1 {
				time.Sleep(time.Second)
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response: %v", err)
			c.logger.Error("[BroadcastTx][io.ReadAll]", map[string]string{
				"error":    err.Error(),
				"endpoint": base,
			})
			continue
		}

		if resp.StatusCode != http.StatusOK {
			bodyStr := string(body)

			c.logger.Error("[BroadcastTx] broadcast error", map[string]string{
				"error":      bodyStr,
				"statusCode": strconv.Itoa(resp.StatusCode),
				"endpoint":   base,
			})

			matches := minFeeRegex.FindStringSubmatch(bodyStr)
			if len(matches) == 3 {
				minFee, _ := strconv.ParseInt(matches[2], 10, 64)
				return "", &BroadcastTxError{
					Message:    fmt.Sprintf("failed to broadcast transaction: %s", bodyStr),
					StatusCode: resp.StatusCode,
					MinFee:     minFee,
				}
			}

			lastErr = fmt.Errorf("status code: %v, failed to broadcast transaction: %s", resp.StatusCode, bodyStr)
			continue
		}

		txID := strings.TrimSpace(string(body))
		if i > 0 {
			c.logger.Info("[BroadcastTx] accepted by fallback endpoint", map[string]string{
				"endpoint": base,
				"txid":     txID,
			})
		}
		return txID, nil
	}

	return "", lastErr
}

// EstimateFees returns a map of confirmation target times (in blocks) to fee rates (in sat/vB)
// Example response:
//
//	{
//	  "1": 25.0,  // 25 sat/vB for next block
//	  "2": 20.0,  // 20 sat/vB for 2 blocks
//	  "3": 15.0,  // 15 sat/vB for 3 blocks
//	  "6": 10.0   // 10 sat/vB for 6 blocks
//	}
func (c *blockstream) EstimateFees() (map[string]float64, error) {
	var fees map[string]float64
	if err := c.getJSON("/fee-estimates", "EstimateFees", &fees); err != nil {
		return nil, err
	}
	return fees, nil
}

func (c *blockstream) GetUTXOs(address string) ([]UTXO, error) {
	var utxos []UTXO
	if err := c.getJSON(fmt.Sprintf("/address/%s/utxo", address), "GetUTXOs", &utxos); err != nil {
		return nil, err
	}
	return utxos, nil
}

// GetBTCBalance returns the confirmed balance of an address in satoshis,
// funded outputs minus spent outputs.
func (c *blockstream) GetBTCBalance(address string) (int64, error) {
	var response GetBalanceResponse
	if err := c.getJSON(fmt.Sprintf("/address/%s", address), "GetBTCBalance", &response); err != nil {
		return 0, err
	}
	return response.ChainStats.FundedTxoSum - response.ChainStats.SpentTxoSum, nil
}

func (c *blockstream) GetTransaction(txID string) (*Transaction, error) {
	var tx Transaction
	if err := c.getJSON(fmt.Sprintf("/tx/%s", txID), "GetTransaction", &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *blockstream) GetBlockTipHeight() (int64, error) {
	body, err := c.get("/blocks/tip/height", "GetBlockTipHeight")
	if err != nil {
		return 0, err
	}

	height, err := strconv.ParseInt(strings.TrimSpace(string(body)), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse block height")
	}
	return height, nil
}

func (c *blockstream) getJSON(path, tag string, out any) error {
	body, err := c.get(path, tag)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error(fmt.Sprintf("[%s][json.Unmarshal]", tag), map[string]string{
			"error": err.Error(),
			"body":  string(body),
		})
		return errors.Wrapf(err, "failed to parse %s response", path)
	}
	return nil
}

// get fetches path with retries, rotating through the endpoint list so one
// dead instance cannot stall a run. A 404 resolves to ErrTxNotFound without
// retrying.
func (c *blockstream) get(path, tag string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		base := c.baseURLs[(attempt-1)%len(c.baseURLs)]
		url := base + path

		resp, err := c.client.Get(url)
		if err != nil {
			lastErr = fmt.Errorf("failed to get %s: %v", path, err)
			c.logger.Error(fmt.Sprintf("[%s][client.Get]", tag), map[string]string{
				"error":    err.Error(),
				"endpoint": base,
				"attempt":  strconv.Itoa(attempt),
			})
			c.pause(attempt)
			continue
		}

		if resp.StatusCode == http.StatusNotFound {
			resp.Body.Close()
			return nil, ErrTxNotFound
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("unexpected status code: %d", resp.StatusCode)
			c.logger.Error(fmt.Sprintf("[%s][client.Get]", tag), map[string]string{
				"error":      lastErr.Error(),
				"statusCode": strconv.Itoa(resp.StatusCode),
				"endpoint":   base,
				"attempt":    strconv.Itoa(attempt),
			})
			c.pause(attempt)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("failed to read response body: %v", err)
			c.logger.Error(fmt.Sprintf("[%s][io.ReadAll]", tag), map[string]string{
				"error":   lastErr.Error(),
				"attempt": strconv.Itoa(attempt),
			})
			continue
		}

		return body, nil
	}

	return nil, lastErr
}

func (c *blockstream) pause(attempt int) {
	if attempt < maxRetries {
		time.Sleep(time.Duration(attempt) * time.Second)
	}
}
