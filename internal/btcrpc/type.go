package btcrpc

// Output is one payment leg of a multi-output funding transaction.
type Output struct {
	Address    string
	AmountSats int64
}

// SendResult describes a broadcast funding transaction.
type SendResult struct {
	TxID       string
	FeeSats    int64
	ChangeSats int64
	NumInputs  int
}
