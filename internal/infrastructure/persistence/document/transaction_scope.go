package document

import (
	"context"

	apptrade "github.com/storefront/backend/internal/application/trade"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/domain/trade"
	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionScope implements apptrade.TransactionScope with a client session
// transaction. The driver retries the callback on transient transaction
// errors, so fn must not have effects outside the repositories it is given.
type TransactionScope struct {
	client   *mongo.Client
	orders   *OrderRepository
	products *ProductRepository
}

// NewTransactionScope creates a TransactionScope over the store's collections
func NewTransactionScope(store *Store) *TransactionScope {
	return &TransactionScope{
		client:   store.Client(),
		orders:   NewOrderRepository(store.Database()),
		products: NewProductRepository(store.Database()),
	}
}

// Execute runs fn inside a multi-document transaction
func (s *TransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(_ mongo.SessionContext) (any, error) {
		return nil, fn(&sessionRepositories{
			orders:   s.orders.withSession(sess),
			products: s.products.withSession(sess),
		})
	})
	return err
}

type sessionRepositories struct {
	orders   *OrderRepository
	products *ProductRepository
}

func (r *sessionRepositories) OrderRepo() trade.OrderRepository {
	return r.orders
}

func (r *sessionRepositories) ProductRepo() catalog.ProductRepository {
	return r.products
}

var _ apptrade.TransactionScope = (*TransactionScope)(nil)
