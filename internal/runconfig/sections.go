package runconfig

// Section fields are pointers so "absent from the file" and "present with a
// zero value" stay distinguishable during merging.

type InvoiceSection struct {
	APIKey    *string  `json:"api_key" validate:"required"`
	StoreID   *string  `json:"store_id" validate:"required"`
	BaseURL   *string  `json:"base_url"`
	Count     *int     `json:"count" validate:"omitempty,gt=0"`
	BatchSize *int     `json:"batch_size" validate:"omitempty,gt=0"`
	Delay     *float64 `json:"delay" validate:"omitempty,gte=0"`
	OutputDir *string  `json:"output_dir"`
}

type PaymentsSection struct {
	Host      *string `json:"host" validate:"required"`
	Database  *string `json:"database" validate:"required"`
	User      *string `json:"user" validate:"required"`
	Password  *string `json:"password" validate:"required"`
	Port      *int    `json:"port" validate:"omitempty,gt=0"`
	Count     *int    `json:"count" validate:"omitempty,gt=0"`
	BatchSize *int    `json:"batch_size" validate:"omitempty,gt=0"`
	OutputDir *string `json:"output_dir"`
	Table     *string `json:"table" validate:"omitempty,oneof=payments invoices both"`
}

type AddressSection struct {
	Amount         *float64 `json:"amount" validate:"omitempty,gt=0"`
	Count          *int     `json:"count" validate:"omitempty,gt=0"`
	NoFunding      *bool    `json:"no_funding"`
	Output         *string  `json:"output"`
	DerivationMode *bool    `json:"derivation_mode"`
	StartIndex     *int     `json:"start_index" validate:"omitempty,gte=0"`
	WalletName     *string  `json:"wallet_name"`
	MaxFee         *float64 `json:"max_fee" validate:"omitempty,gt=0"`
	BatchSize      *int     `json:"batch_size" validate:"omitempty,gt=0"`
}

type NetworkSection struct {
	Mainnet   *bool   `json:"mainnet"`
	NotifyURL *string `json:"notify_url" validate:"omitempty,url"`
}

type KeyImportSection struct {
	PrivateKey *string `json:"private_key"`
	Mnemonic   *string `json:"mnemonic"`
	KeyFile    *string `json:"key_file"`
}
