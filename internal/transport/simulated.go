package transport

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/sha3"

	"github.com/TobaSenju/mahalend-contracts-periphery/internal/registry"
)

// DefaultAccounts is the number of accounts a simulated chain exposes.
const DefaultAccounts = 10

// Simulated is a deterministic in-memory chain. Deployments get CREATE-style
// addresses derived from the deployer and its nonce, calls get transaction hashes.
// It is safe for concurrent use.
type Simulated struct {
	mu       sync.Mutex
	accounts []registry.Handle
	nonce    uint64
	deployed map[registry.Handle]Request
	requests []Request
	failures map[ActionID]error
}

var _ Transport = &Simulated{}

// SimulatedOption configures a Simulated chain.
type SimulatedOption func(*simulatedConfig)

type simulatedConfig struct {
	seed     string
	accounts int
}

// WithSeed changes the seed accounts are derived from.
func WithSeed(seed string) SimulatedOption {
	return func(c *simulatedConfig) { c.seed = seed }
}

// WithAccounts changes the number of accounts.
func WithAccounts(n int) SimulatedOption {
	return func(c *simulatedConfig) { c.accounts = n }
}

// NewSimulated creates a fresh simulated chain.
func NewSimulated(opts ...SimulatedOption) *Simulated {
	cfg := simulatedConfig{seed: "testenv", accounts: DefaultAccounts}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.accounts < 1 {
		cfg.accounts = 1
	}

	accounts := make([]registry.Handle, cfg.accounts)
	for i := range accounts {
		accounts[i] = toAddress(keccak([]byte(fmt.Sprintf("%s/account/%d", cfg.seed, i))))
	}

	return &Simulated{
		accounts: accounts,
		deployed: make(map[registry.Handle]Request),
		failures: make(map[ActionID]error),
	}
}

// Provision executes req against the simulated chain.
func (s *Simulated) Provision(ctx context.Context, req Request) (registry.Handle, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, cloneRequest(req))

	if err, ok := s.failures[req.Action]; ok {
		return "", err
	}

	switch req.Kind {
	case KindAccount:
		idx, err := req.Args.Int("index")
		if err != nil {
			return "", fmt.Errorf("account request %s: invalid index %q", req.Action, req.Args["index"])
		}
		if idx < 0 || idx >= len(s.accounts) {
			return "", fmt.Errorf("account request %s: index %d out of range [0,%d)", req.Action, idx, len(s.accounts))
		}
		return s.accounts[idx], nil
	case KindDeploy:
		addr := s.createAddress()
		s.deployed[addr] = cloneRequest(req)
		return addr, nil
	case KindCall:
		return s.txHash(), nil
	default:
		return "", fmt.Errorf("unsupported request kind %q for %s", req.Kind, req.Action)
	}
}

// FailOn makes every later request for action fail with err.
func (s *Simulated) FailOn(action ActionID, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[action] = err
}

// Requests returns every request received so far, in order.
func (s *Simulated) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// RequestsFor returns the requests received for action.
func (s *Simulated) RequestsFor(action ActionID) []Request {
	var out []Request
	for _, req := range s.Requests() {
		if req.Action == action {
			out = append(out, req)
		}
	}
	return out
}

// Deployment returns the request that deployed addr.
func (s *Simulated) Deployment(addr registry.Handle) (Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.deployed[addr]
	return req, ok
}

// Accounts returns the chain's accounts.
func (s *Simulated) Accounts() []registry.Handle {
	out := make([]registry.Handle, len(s.accounts))
	copy(out, s.accounts)
	return out
}

// createAddress derives the next contract address of the deployer (account 0).
// Callers hold s.mu.
func (s *Simulated) createAddress() registry.Handle {
	deployer, _ := hex.DecodeString(string(s.accounts[0])[2:])
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], s.nonce)
	s.nonce++
	return toAddress(keccak(deployer, nonce[:]))
}

// txHash returns the hash of the next transaction. Callers hold s.mu.
func (s *Simulated) txHash() registry.Handle {
	var nonce [8]byte
	binary.BigEndian.PutUint64(nonce[:], s.nonce)
	s.nonce++
	return registry.Handle("0x" + hex.EncodeToString(keccak([]byte("tx"), nonce[:])))
}

func keccak(parts ...[]byte) []byte {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

func toAddress(digest []byte) registry.Handle {
	return registry.Handle("0x" + hex.EncodeToString(digest[len(digest)-20:]))
}

func cloneRequest(req Request) Request {
	out := Request{Action: req.Action, Kind: req.Kind}
	if req.Args != nil {
		out.Args = make(Args, len(req.Args))
		for k, v := range req.Args {
			out.Args[k] = v
		}
	}
	if req.Dependencies != nil {
		out.Dependencies = make(map[registry.Name]registry.Handle, len(req.Dependencies))
		for k, v := range req.Dependencies {
			out.Dependencies[k] = v
		}
	}
	return out
}
