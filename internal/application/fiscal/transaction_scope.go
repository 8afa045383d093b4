package fiscal

import (
	"context"

	appaccounting "github.com/erp/fiscal/internal/application/accounting"
	"github.com/erp/fiscal/internal/domain/fiscal"
)

// TransactionScope provides transactional access to the fiscal and ledger
// repositories. Postings of withholdings and the certificate counter share
// the transaction of the record they belong to.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories extends the ledger repositories with the fiscal ones
type Repositories interface {
	appaccounting.LedgerRepositories
	IVAWithholdings() fiscal.IVAWithholdingRepository
	ISLRWithholdings() fiscal.ISLRWithholdingRepository
	SalesBook() fiscal.SalesBookRepository
	PurchaseBook() fiscal.BookEntryRepository
	Declarations() fiscal.IVADeclarationRepository
	Sequences() fiscal.SequenceRepository
}
