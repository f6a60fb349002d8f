// Command dcbdemo is a minimal wiring example for the distributed circuit
// breaker library: build a guarded function, construct the breaker, drain
// role/state change notifications on a background goroutine, then fire one
// guarded call. It wires the Redis-backed coordination store and the viper
// config loader.
package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielglennross/go-dcb/backoff"
	"github.com/danielglennross/go-dcb/breaker"
	"github.com/danielglennross/go-dcb/config"
	"github.com/danielglennross/go-dcb/coordination/redis"
	"github.com/danielglennross/go-dcb/logging"
	"github.com/danielglennross/go-dcb/schema"
	"github.com/danielglennross/go-dcb/strategy"
)

func main() {
	cfg, err := config.Load("./config")
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Environment)

	store := redis.New(redis.Options{
		Addrs:    cfg.Redis.Addrs,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Logger:   logger,
	})
	defer store.Close()

	exp, err := backoff.NewExponential(backoff.Exponential{
		Min: time.Duration(cfg.Circuit.BackoffMinMs) * time.Millisecond,
		Max: time.Duration(cfg.Circuit.BackoffMaxMs) * time.Millisecond,
	})
	if err != nil {
		panic(err)
	}

	roleChanges := make(chan schema.Role, 8)
	stateChanges := make(chan schema.CircuitState, 8)

	cb, err := breaker.New(breaker.Config{
		ID:      cfg.Circuit.ID,
		Prefix:  cfg.Circuit.Prefix,
		Store:   store,
		Breaker: strategy.ConsecutiveFailures(cfg.Circuit.ConsecutiveThreshold),
		Health: breaker.HealthConfig{
			Backoff:             exp,
			Check:               probeDownstream,
			IdleProbeIntervalMs: cfg.Circuit.IdleProbeIntervalMs,
		},
		WindowSize: cfg.Circuit.WindowSize,
		OnRoleChange: func(r schema.Role) {
			roleChanges <- r
		},
		OnStateChange: func(s schema.CircuitState) {
			stateChanges <- s
		},
		Logger: logger,
	})
	if err != nil {
		panic(err)
	}

	go func() {
		for {
			select {
			case r := <-roleChanges:
				logger.Info("role changed", "role", r.String())
			case s := <-stateChanges:
				logger.Info("state changed", "state", s.String())
			}
		}
	}()

	ctx := context.Background()
	if err := cb.Start(ctx); err != nil {
		panic(err)
	}
	defer cb.Stop(ctx)

	res, err := cb.Execute(func() (interface{}, error) {
		return callDownstream("daniel", 2)
	})
	if err != nil {
		var open *schema.CircuitOpenError
		if errors.As(err, &open) {
			fmt.Printf("circuit open for %s\n", open.CircuitID)
			return
		}
		fmt.Println(err)
		return
	}
	fmt.Printf("%v\n", res)
}

func callDownstream(id string, fh int) (interface{}, error) {
	fmt.Println("Hello World " + id)
	return 5 * fh, nil
}

func probeDownstream(ctx context.Context, kind schema.ProbeKind) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}
