package redis

import "context"

type IntCmd struct{}
type FloatCmd struct{}
type StringCmd struct{}

type cmdable func(ctx context.Context) error

func (c cmdable) Get(ctx context.Context, key string) *StringCmd                   { return nil }
func (c cmdable) Incr(ctx context.Context, key string) *IntCmd                     { return nil }
func (c cmdable) IncrByFloat(ctx context.Context, key string, v float64) *FloatCmd { return nil }

type Client struct {
	cmdable
}

type Cmdable interface {
	Get(ctx context.Context, key string) *StringCmd
	Incr(ctx context.Context, key string) *IntCmd
}
