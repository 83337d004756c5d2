package btcrpc

type IBtcRpc interface {
	// SendToMany builds, signs and broadcasts one transaction paying every
	// output from the funding wallet.
	SendToMany(outputs []Output) (*SendResult, error)
	// CurrentBalance is the confirmed balance of the funding address in satoshis.
	CurrentBalance() (int64, error)
	// ConfirmTransaction reports whether a broadcast transaction has been
	// mined. An unknown txid is not an error, just unconfirmed.
	ConfirmTransaction(txID string) (bool, error)
	// SpendableUTXOs reports how many confirmed UTXOs the funding address
	// currently has.
	SpendableUTXOs() (int, error)
	EstimateFees() (map[string]float64, error)
	Address() string
}
