package repository

import "context"

// TxRepositories exposes the repositories bound to one transaction.
type TxRepositories interface {
	RefreshTokens() RefreshTokenRepository
	Users() UserRepository
}

// UnitOfWork runs fn inside a single transaction: it commits when fn returns
// nil and rolls back when fn returns an error or panics.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(tx TxRepositories) error) error
}

//Personal.AI order the ending
