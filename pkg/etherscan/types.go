package etherscan

import "encoding/json"

// Response is the envelope shared by every Etherscan endpoint. Status "1" means
// success; on failure Result usually holds a human-readable string.
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// Log is one raw event log from logs/getLogs. Numeric fields are hex strings.
type Log struct {
	Address          string   `json:"address"`
	Topics           []string `json:"topics"`
	Data             string   `json:"data"`
	BlockNumber      string   `json:"blockNumber"`
	BlockHash        string   `json:"blockHash"`
	TimeStamp        string   `json:"timeStamp"`
	GasPrice         string   `json:"gasPrice"`
	GasUsed          string   `json:"gasUsed"`
	LogIndex         string   `json:"logIndex"`
	TransactionHash  string   `json:"transactionHash"`
	TransactionIndex string   `json:"transactionIndex"`
}

// Closest selects which side of a timestamp a block lookup resolves to.
type Closest string

const (
	Before Closest = "before"
	After  Closest = "after"
)

// LogQuery is an inclusive block range filtered by emitter and first topic.
type LogQuery struct {
	Address   string
	FromBlock uint64
	ToBlock   uint64
	Topic0    string
}
