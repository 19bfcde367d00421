// Package explorer renders block-explorer hyperlinks for display next to
// transaction results.
package explorer

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/gadshier/Fronted-Sistema-Blockchain/internal/config"
)

const placeholder = "{tx}"

// Links formats read-only explorer URLs from a configured template.
type Links struct {
	txTemplate string
}

func New(cfg *config.ExplorerConfig) Links {
	return Links{txTemplate: cfg.TxURLTemplate}
}

// TxURL returns the explorer link for a transaction hash. Templates without
// the {tx} placeholder get the hash appended.
func (l Links) TxURL(hash common.Hash) string {
	if strings.Contains(l.txTemplate, placeholder) {
		return strings.ReplaceAll(l.txTemplate, placeholder, hash.Hex())
	}
	return l.txTemplate + hash.Hex()
}
