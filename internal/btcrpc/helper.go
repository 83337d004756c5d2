package btcrpc

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/probstack/btcpay-harness/internal/btcrpc/blockstream"
)

const (
	p2wpkhInputSize  = 68 // SegWit P2WPKH input size
	p2wpkhOutputSize = 31 // SegWit P2WPKH output size
	txOverhead       = 10 // Transaction overhead

	// Outputs below this value are nonstandard and would be rejected.
	dustLimit = 546

	// Widely accepted confirmation target for funding transactions.
	confirmationTarget = 6
)

// calculateTxFee estimates the transaction fee based on current network conditions
func (b *BtcRpc) calculateTxFee(feeRates map[string]float64, numInputs, numOutputs, targetBlocks int) (int64, error) {
	target := fmt.Sprintf("%d", targetBlocks)
	feeRate, ok := feeRates[target]
	if !ok {
		return 0, fmt.Errorf("no fee rate available for target %d blocks", targetBlocks)
	}

	txSize := calculateTxSize(numInputs, numOutputs)

	fee := int64(float64(txSize) * feeRate)
	return fee, nil
}

// calculateTxSize calculates the total transaction size in bytes
func calculateTxSize(numInputs, numOutputs int) int {
	return txOverhead + (numInputs * p2wpkhInputSize) + (numOutputs * p2wpkhOutputSize)
}

// getSelfPrivKeyAndAddress decodes the WIF private key and derives the
// funding wallet's SegWit address from it.
func (b *BtcRpc) getSelfPrivKeyAndAddress(wifStr string) (*secp256k1.PrivateKey, *btcutil.AddressWitnessPubKeyHash, error) {
	wif, err := btcutil.DecodeWIF(wifStr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode wif: %v", err)
	}

	privKey := wif.PrivKey
	pubKey := privKey.PubKey()
	pubKeyHash := btcutil.Hash160(pubKey.SerializeCompressed())

	address, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, b.networkParams)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create sender address: %v", err)
	}

	return privKey, address, nil
}

// prepareTxInputs creates and returns transaction inputs from UTXOs
func (b *BtcRpc) prepareTxInputs(utxos []blockstream.UTXO) ([]*wire.TxIn, error) {
	var inputs []*wire.TxIn

	for _, utxo := range utxos {
		hash, err := chainhash.NewHashFromStr(utxo.TxID)
		if err != nil {
			return nil, fmt.Errorf("failed to create hash: %v", err)
		}
		input := wire.NewTxIn(wire.NewOutPoint(hash, uint32(utxo.Vout)), nil, nil)
		inputs = append(inputs, input)
	}

	return inputs, nil
}

// prepareTx assembles the funding transaction: one input per selected UTXO,
// one output per payment leg and a change output back to the sender when the
// change clears the dust limit.
func (b *BtcRpc) prepareTx(
	selected []blockstream.UTXO,
	outputs []Output,
	changeAmount int64,
) (*wire.MsgTx, error) {
	tx := wire.NewMsgTx(2)

	inputs, err := b.prepareTxInputs(selected)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare inputs: %v", err)
	}
	for _, input := range inputs {
		tx.AddTxIn(input)
	}

	for _, out := range outputs {
		address, err := btcutil.DecodeAddress(out.Address, b.networkParams)
		if err != nil {
			return nil, fmt.Errorf("failed to decode recipient address %s: %v", out.Address, err)
		}
		pkScript, err := txscript.PayToAddrScript(address)
		if err != nil {
			return nil, fmt.Errorf("failed to create recipient output script: %v", err)
		}
		tx.AddTxOut(wire.NewTxOut(out.AmountSats, pkScript))
	}

	if changeAmount > 0 {
		changePkScript, err := txscript.PayToAddrScript(b.senderAddress)
		if err != nil {
			return nil, fmt.Errorf("failed to create change output script: %v", err)
		}
		tx.AddTxOut(wire.NewTxOut(changeAmount, changePkScript))
	}

	return tx, nil
}

// sign signs the transaction with the private key for each input
func (b *BtcRpc) sign(tx *wire.MsgTx, selectedUTXOs []blockstream.UTXO) error {
	prevOutScript, err := txscript.PayToAddrScript(b.senderAddress)
	if err != nil {
		return fmt.Errorf("failed to create sender output script: %v", err)
	}

	// Sign each input with corresponding UTXO amount
	for i, utxo := range selectedUTXOs {
		prevOuts := txscript.NewCannedPrevOutputFetcher(prevOutScript, utxo.Value)
		witness, err := txscript.WitnessSignature(
			tx,
			txscript.NewTxSigHashes(tx, prevOuts),
			i,
			utxo.Value,
			prevOutScript,
			txscript.SigHashAll,
			b.privKey,
			true,
		)
		if err != nil {
			return fmt.Errorf("failed to sign transaction input %d: %v", i, err)
		}
		tx.TxIn[i].Witness = witness
		tx.TxIn[i].SignatureScript = nil
	}

	return nil
}

// broadcast serializes the signed transaction and hands it to the esplora
// endpoints, returning the transaction id.
func (b *BtcRpc) broadcast(tx *wire.MsgTx) (string, error) {
	var signedTx bytes.Buffer
	if err := tx.Serialize(&signedTx); err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %v", err)
	}
	txHex := hex.EncodeToString(signedTx.Bytes())

	return b.blockstream.BroadcastTx(txHex)
}

func (b *BtcRpc) getConfirmedUTXOs(address string) ([]blockstream.UTXO, error) {
	utxos, err := b.blockstream.GetUTXOs(address)
	if err != nil {
		return nil, err
	}

	// Filter confirmed UTXOs and sort by value in descending order
	var confirmedUTXOs []blockstream.UTXO
	for _, utxo := range utxos {
		if utxo.Status.Confirmed {
			confirmedUTXOs = append(confirmedUTXOs, utxo)
		}
	}
	sort.Slice(confirmedUTXOs, func(i, j int) bool {
		return confirmedUTXOs[i].Value > confirmedUTXOs[j].Value
	})

	return confirmedUTXOs, nil
}

// selectUTXOs picks UTXOs until they cover totalSend plus the fee. The fee
// grows with each added input, so it is recalculated every round. feeFloor is
// a hard lower bound used when a node has already named its minimum, and the
// configured maximum caps the result.
func (b *BtcRpc) selectUTXOs(totalSend int64, numOutputs int, feeFloor int64) (selected []blockstream.UTXO, fee int64, changeAmount int64, err error) {
	if b.maxFeeSats > 0 && feeFloor > b.maxFeeSats {
		return nil, 0, 0, fmt.Errorf(
			"network demands fee of %d satoshis, above the configured maximum of %d",
			feeFloor,
			b.maxFeeSats,
		)
	}

	confirmedUTXOs, err := b.getConfirmedUTXOs(b.Address())
	if err != nil {
		return nil, 0, 0, err
	}

	feeRates, err := b.blockstream.EstimateFees()
	if err != nil {
		return nil, 0, 0, err
	}

	var totalSelected int64
	for _, utxo := range confirmedUTXOs {
		selected = append(selected, utxo)
		totalSelected += utxo.Value

		fee, err = b.calculateTxFee(feeRates, len(selected), numOutputs, confirmationTarget)
		if err != nil {
			return nil, 0, 0, err
		}
		if fee < feeFloor {
			fee = feeFloor
		}
		if b.maxFeeSats > 0 && fee > b.maxFeeSats {
			fee = b.maxFeeSats
		}

		if totalSelected >= totalSend+fee {
			changeAmount = totalSelected - totalSend - fee
			return selected, fee, changeAmount, nil
		}
	}

	return nil, 0, 0, fmt.Errorf(
		"insufficient funds: have %d satoshis, need %d satoshis",
		totalSelected,
		totalSend+fee,
	)
}
