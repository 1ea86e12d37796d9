package model

// DeploymentRecord captures one confirmed contract creation.
type DeploymentRecord struct {
	ChainID    uint64   `json:"chain_id"`
	Network    string   `json:"network"`
	Contract   string   `json:"contract"`
	Address    string   `json:"address"`
	TxHash     string   `json:"tx_hash"`
	Deployer   string   `json:"deployer"`
	Args       []string `json:"args"`
	DeployedAt string   `json:"deployed_at"`
}

// MintRecord captures a confirmed public mint and the token ids it produced.
type MintRecord struct {
	ChainID  uint64   `json:"chain_id"`
	Contract string   `json:"contract"`
	TxHash   string   `json:"tx_hash"`
	Minter   string   `json:"minter"`
	Round    uint64   `json:"round"`
	Quantity uint64   `json:"quantity"`
	Price    string   `json:"price"`
	Deadline uint64   `json:"deadline"`
	TokenIDs []string `json:"token_ids"`
	MintedAt string   `json:"minted_at"`
}

// RevealObservation is one token's indexer state seen during a poll tick.
type RevealObservation struct {
	ChainID    uint64 `json:"chain_id"`
	Contract   string `json:"contract"`
	Iteration  int    `json:"iteration"`
	TokenID    string `json:"token_id"`
	Status     string `json:"status"`
	Value      string `json:"value,omitempty"`
	ObservedAt string `json:"observed_at"`
}
