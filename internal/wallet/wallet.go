package wallet

import (
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/pkg/errors"
	"github.com/tyler-smith/go-bip39"

	"github.com/probstack/btcpay-harness/internal/utils/logger"
)

// AddressInfo is one generated address as it lands in the addresses JSON
// artifact. PrivateKey and PublicKey are hex encoded and only set for fresh
// independent keys; derived addresses are recoverable from the wallet seed.
type AddressInfo struct {
	Index      int    `json:"index"`
	Address    string `json:"address"`
	PrivateKey string `json:"private_key,omitempty"`
	PublicKey  string `json:"public_key,omitempty"`
	WIF        string `json:"wif"`
	Network    string `json:"network"`
}

// Options selects the key source for the funding wallet. At most one of
// PrivateKey, Mnemonic and KeyFile may be set; with none set a brand new
// wallet is generated and its seed logged once.
type Options struct {
	Network    string
	WalletName string
	PrivateKey string
	Mnemonic   string
	KeyFile    string
}

// HDWallet is a BIP84 wallet over a bip39 seed, or a single imported WIF key
// when no seed material is available.
type HDWallet struct {
	name    string
	network string
	params  *chaincfg.Params
	logger  *logger.Logger

	master *hdkeychain.ExtendedKey
	wif    *btcutil.WIF
}

func New(opts Options, l *logger.Logger) (IWallet, error) {
	params := networkParams(opts.Network)

	name := opts.WalletName
	if name == "" {
		name = "wallet_0"
	}

	w := &HDWallet{
		name:    name,
		network: networkName(params),
		params:  params,
		logger:  l,
	}

	privateKey, mnemonic := opts.PrivateKey, opts.Mnemonic

	if opts.KeyFile != "" && privateKey == "" && mnemonic == "" {
		loadedKey, loadedMnemonic, err := loadKeyFile(opts.KeyFile)
		if err != nil {
			return nil, err
		}
		privateKey, mnemonic = loadedKey, loadedMnemonic
	}

	switch {
	case privateKey != "":
		wif, err := btcutil.DecodeWIF(privateKey)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode private key")
		}
		if !wif.IsForNet(params) {
			return nil, errors.Errorf("private key is not valid for %s", w.network)
		}
		w.wif = wif
		l.Info("[New] imported wallet from private key", map[string]string{
			"wallet": name,
		})

	case mnemonic != "":
		if !bip39.IsMnemonicValid(mnemonic) {
			return nil, errors.New("invalid mnemonic phrase")
		}
		master, err := masterFromMnemonic(mnemonic, params)
		if err != nil {
			return nil, err
		}
		w.master = master
		l.Info("[New] imported wallet from mnemonic", map[string]string{
			"wallet": name,
		})

	default:
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate wallet entropy")
		}
		generated, err := bip39.NewMnemonic(entropy)
		if err != nil {
			return nil, errors.Wrap(err, "failed to generate mnemonic")
		}
		master, err := masterFromMnemonic(generated, params)
		if err != nil {
			return nil, err
		}
		w.master = master
		// the seed is logged exactly once; without it the wallet is lost
		l.Info("[New] created new wallet", map[string]string{
			"wallet": name,
			"seed":   generated,
		})
	}

	zeroAddress, err := w.FundingAddress()
	if err != nil {
		return nil, err
	}
	l.Info("[New] wallet ready", map[string]string{
		"wallet":       name,
		"network":      w.network,
		"zero_address": zeroAddress,
	})

	return w, nil
}

func (w *HDWallet) Name() string {
	return w.name
}

func (w *HDWallet) Network() string {
	return w.network
}

// loadKeyFile sniffs the file content: several words form a mnemonic, a
// single token is a WIF private key.
func loadKeyFile(path string) (privateKey, mnemonic string, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", errors.Wrapf(err, "failed to read key file: %s", path)
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", "", errors.Errorf("key file is empty: %s", path)
	}

	if len(strings.Fields(content)) > 1 {
		return "", strings.Join(strings.Fields(content), " "), nil
	}

	return content, "", nil
}

func masterFromMnemonic(mnemonic string, params *chaincfg.Params) (*hdkeychain.ExtendedKey, error) {
	seed := bip39.NewSeed(mnemonic, "")

	master, err := hdkeychain.NewMaster(seed, params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive master key")
	}

	return master, nil
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

func networkName(params *chaincfg.Params) string {
	switch params.Net {
	case chaincfg.MainNetParams.Net:
		return "bitcoin"
	case chaincfg.RegressionNetParams.Net:
		return "regtest"
	default:
		return "testnet"
	}
}
