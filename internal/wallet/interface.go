package wallet

// IWallet is the funding wallet the address generation commands run against.
// Fresh generation mints independent throwaway keys; DeriveRange walks the
// wallet's own external chain so addresses stay recoverable from its seed.
type IWallet interface {
	Name() string
	Network() string
	FundingAddress() (string, error)
	FundingWIF() (string, error)
	GenerateFresh(count int) ([]AddressInfo, error)
	DeriveRange(startIndex, count int) ([]AddressInfo, error)
}
