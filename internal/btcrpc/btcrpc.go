package btcrpc

import (
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/pkg/errors"

	"github.com/probstack/btcpay-harness/internal/btcrpc/blockstream"
	"github.com/probstack/btcpay-harness/internal/utils/config"
	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

type BtcRpc struct {
	appConfig     *config.AppConfig
	logger        *logger.Logger
	blockstream   blockstream.IBlockStream
	networkParams *chaincfg.Params
	privKey       *secp256k1.PrivateKey
	senderAddress *btcutil.AddressWitnessPubKeyHash
	maxFeeSats    int64
}

// New builds a funder that spends from the address behind wifStr. maxFeeSats
// is an absolute per-transaction fee ceiling; zero disables the ceiling.
func New(appConfig *config.AppConfig, logger *logger.Logger, wifStr string, maxFeeSats int64) (IBtcRpc, error) {
	b := &BtcRpc{
		appConfig:     appConfig,
		logger:        logger,
		blockstream:   blockstream.New(appConfig, logger),
		networkParams: networkParams(appConfig.Bitcoin.Network),
		maxFeeSats:    maxFeeSats,
	}

	privKey, address, err := b.getSelfPrivKeyAndAddress(wifStr)
	if err != nil {
		return nil, err
	}
	b.privKey = privKey
	b.senderAddress = address

	return b, nil
}

func (b *BtcRpc) Address() string {
	return b.senderAddress.EncodeAddress()
}

func (b *BtcRpc) CurrentBalance() (int64, error) {
	return b.blockstream.GetBTCBalance(b.Address())
}

func (b *BtcRpc) EstimateFees() (map[string]float64, error) {
	return b.blockstream.EstimateFees()
}

func (b *BtcRpc) SpendableUTXOs() (int, error) {
	utxos, err := b.getConfirmedUTXOs(b.Address())
	if err != nil {
		return 0, err
	}

	return len(utxos), nil
}

func (b *BtcRpc) ConfirmTransaction(txID string) (bool, error) {
	tx, err := b.blockstream.GetTransaction(txID)
	if err != nil {
		if errors.Is(err, blockstream.ErrTxNotFound) {
			return false, nil
		}
		return false, err
	}
	return tx.Status.Confirmed, nil
}

func (b *BtcRpc) SendToMany(outputs []Output) (*SendResult, error) {
	if len(outputs) == 0 {
		return nil, errors.New("no outputs to send")
	}

	var totalSend int64
	for _, out := range outputs {
		if out.AmountSats <= 0 {
			return nil, errors.Errorf("invalid amount %d for output %s", out.AmountSats, out.Address)
		}
		totalSend += out.AmountSats
	}

	result, err := b.sendWithFeeFloor(outputs, totalSend, 0)

	// A min relay fee rejection names the fee the node wants. Rebuild the
	// transaction once at that fee before giving up.
	var broadcastErr *blockstream.BroadcastTxError
	if errors.As(err, &broadcastErr) && broadcastErr.MinFee > 0 {
		b.logger.Info("[SendToMany] retrying with node minimum fee", map[string]string{
			"min_fee": strconv.FormatInt(broadcastErr.MinFee, 10),
		})
		return b.sendWithFeeFloor(outputs, totalSend, broadcastErr.MinFee)
	}

	return result, err
}

func (b *BtcRpc) sendWithFeeFloor(outputs []Output, totalSend, feeFloor int64) (*SendResult, error) {
	selected, fee, changeAmount, err := b.selectUTXOs(totalSend, len(outputs)+1, feeFloor)
	if err != nil {
		return nil, err
	}

	// Change below the dust limit cannot be an output, leave it to the miners.
	if changeAmount > 0 && changeAmount < dustLimit {
		fee += changeAmount
		changeAmount = 0
	}

	tx, err := b.prepareTx(selected, outputs, changeAmount)
	if err != nil {
		return nil, err
	}

	if err := b.sign(tx, selected); err != nil {
		return nil, err
	}

	txID, err := b.broadcast(tx)
	if err != nil {
		return nil, err
	}

	b.logger.Info("[SendToMany] transaction broadcast", map[string]string{
		"txid":    txID,
		"outputs": strconv.Itoa(len(outputs)),
		"inputs":  strconv.Itoa(len(selected)),
		"fee":     strconv.FormatInt(fee, 10),
	})

	return &SendResult{
		TxID:       txID,
		FeeSats:    fee,
		ChangeSats: changeAmount,
		NumInputs:  len(selected),
	}, nil
}

func networkParams(network string) *chaincfg.Params {
	switch network {
	case "mainnet", "bitcoin":
		return &chaincfg.MainNetParams
	case "regtest":
		return &chaincfg.RegressionNetParams
	default:
		return &chaincfg.TestNet3Params
	}
}
