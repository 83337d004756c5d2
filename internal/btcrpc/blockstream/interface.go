package blockstream

type IBlockStream interface {
	BroadcastTx(txHex string) (txID string, err error)
	EstimateFees() (fees map[string]float64, err error)
	GetUTXOs(address string) ([]UTXO, error)
	GetBTCBalance(address string) (balanceSats int64, err error)
	GetTransaction(txID string) (*Transaction, error)
	GetBlockTipHeight() (int64, error)
}
