package wallet

import (
	"encoding/hex"
	"strconv"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/pkg/errors"
)

// GenerateFresh mints count independent P2WPKH keys. Every key is random and
// unrelated to the wallet seed, so the full key material goes into the
// artifact for later sweeping.
func (w *HDWallet) GenerateFresh(count int) ([]AddressInfo, error) {
	addresses := make([]AddressInfo, 0, count)

	for i := 0; i < count; i++ {
		priv, err := btcec.NewPrivateKey()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to generate key %d", i+1)
		}

		wif, err := btcutil.NewWIF(priv, w.params, true)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode wif for key %d", i+1)
		}

		address, err := p2wpkhAddress(priv, w)
		if err != nil {
			return nil, err
		}

		addresses = append(addresses, AddressInfo{
			Index:      i + 1,
			Address:    address,
			PrivateKey: hex.EncodeToString(priv.Serialize()),
			PublicKey:  hex.EncodeToString(priv.PubKey().SerializeCompressed()),
			WIF:        wif.String(),
			Network:    w.network,
		})

		if (i+1)%100 == 0 {
			w.logger.Info("[GenerateFresh] progress", map[string]string{
				"generated": strconv.Itoa(i + 1),
				"count":     strconv.Itoa(count),
			})
		}
	}

	return addresses, nil
}

// DeriveRange walks the wallet's external chain (BIP84, m/84'/coin'/0'/0/i)
// from startIndex for count addresses. Only seed-backed wallets can derive.
func (w *HDWallet) DeriveRange(startIndex, count int) ([]AddressInfo, error) {
	if w.master == nil {
		return nil, errors.New("derivation requires a seed-backed wallet, not a single imported key")
	}

	chain, err := w.externalChain()
	if err != nil {
		return nil, err
	}

	addresses := make([]AddressInfo, 0, count)

	for i := startIndex; i < startIndex+count; i++ {
		child, err := chain.Derive(uint32(i))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to derive address index %d", i)
		}

		priv, err := child.ECPrivKey()
		if err != nil {
			return nil, errors.Wrapf(err, "failed to extract key at index %d", i)
		}

		wif, err := btcutil.NewWIF(priv, w.params, true)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to encode wif at index %d", i)
		}

		address, err := p2wpkhAddress(priv, w)
		if err != nil {
			return nil, err
		}

		addresses = append(addresses, AddressInfo{
			Index:   i,
			Address: address,
			WIF:     wif.String(),
			Network: w.network,
		})
	}

	return addresses, nil
}

// FundingAddress is the wallet's zero address, the one operators top up.
func (w *HDWallet) FundingAddress() (string, error) {
	priv, err := w.fundingKey()
	if err != nil {
		return "", err
	}

	return p2wpkhAddress(priv, w)
}

// FundingWIF exposes the spending key of the zero address for the transaction
// signer.
func (w *HDWallet) FundingWIF() (string, error) {
	if w.wif != nil {
		return w.wif.String(), nil
	}

	priv, err := w.fundingKey()
	if err != nil {
		return "", err
	}

	wif, err := btcutil.NewWIF(priv, w.params, true)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode funding wif")
	}

	return wif.String(), nil
}

func (w *HDWallet) fundingKey() (*btcec.PrivateKey, error) {
	if w.wif != nil {
		return w.wif.PrivKey, nil
	}

	chain, err := w.externalChain()
	if err != nil {
		return nil, err
	}

	child, err := chain.Derive(0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive funding key")
	}

	priv, err := child.ECPrivKey()
	if err != nil {
		return nil, errors.Wrap(err, "failed to extract funding key")
	}

	return priv, nil
}

// externalChain derives m/84'/coin'/0'/0 for the wallet's network.
func (w *HDWallet) externalChain() (*hdkeychain.ExtendedKey, error) {
	purpose, err := w.master.Derive(hdkeychain.HardenedKeyStart + 84)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive purpose level")
	}

	coin, err := purpose.Derive(hdkeychain.HardenedKeyStart + w.params.HDCoinType)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive coin level")
	}

	account, err := coin.Derive(hdkeychain.HardenedKeyStart + 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive account level")
	}

	chain, err := account.Derive(0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive external chain")
	}

	return chain, nil
}

func p2wpkhAddress(priv *btcec.PrivateKey, w *HDWallet) (string, error) {
	pubKeyHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())

	address, err := btcutil.NewAddressWitnessPubKeyHash(pubKeyHash, w.params)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode p2wpkh address")
	}

	return address.EncodeAddress(), nil
}
