package memory

import (
	"testing"

	"bilancio/internal/ports"
	"bilancio/internal/storage/storetest"
)

func TestStoreContract(t *testing.T) {
	storetest.Run(t, func(*testing.T) ports.Store { return New() })
}
