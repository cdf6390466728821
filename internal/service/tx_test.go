package service

import "context"

type testTxRepos struct {
	chunks  ChunkRepositoryInterface
	queries QueryRepositoryInterface
}

func (t *testTxRepos) Chunks() ChunkRepositoryInterface {
	return t.chunks
}

func (t *testTxRepos) Queries() QueryRepositoryInterface {
	return t.queries
}

type testTxRunner struct {
	repos  TxRepositories
	called int
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called++
	return fn(t.repos)
}
