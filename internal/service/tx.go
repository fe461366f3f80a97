package service

import "context"

// TxRepositories provides transaction-bound repositories.
type TxRepositories interface {
	Files() FileRepositoryInterface
	Chunks() ChunkRepositoryInterface
	IndexJobs() IndexJobRepositoryInterface
}

// TxRunner executes a function within a transaction.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(repos TxRepositories) error) error
}
