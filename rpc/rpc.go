package rpc

import (
	"context"
	"errors"
	"net"
	"net/rpc"
	"sync"

	"github.com/wfunc/traitorserver/logger"
	"github.com/wfunc/traitorserver/models"
	"github.com/wfunc/traitorserver/services"
)

// Server manages the RPC listener.
type Server struct {
	listener net.Listener
	address  string
	rpc      *rpc.Server
	mutex    sync.Mutex
}

// NewServer creates an RPC server exposing the given services. Nothing is
// bound until Start.
func NewServer(addr string, rcvrs ...interface{}) (*Server, error) {
	srv := rpc.NewServer()
	for _, r := range rcvrs {
		if err := srv.Register(r); err != nil {
			return nil, err
		}
	}
	return &Server{address: addr, rpc: srv}, nil
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	s.listener = listener
	s.mutex.Unlock()
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start begins accepting RPC connections. It blocks until Stop.
func (s *Server) Start() {
	s.mutex.Lock()
	listener := s.listener
	s.mutex.Unlock()
	if listener == nil {
		logger.Log.Error("RPC server started without a listener")
		return
	}

	logger.Log.Infof("RPC server listening on %s", listener.Addr())
	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Log.Info("RPC server listener closed.")
				return
			}
			logger.Log.Errorf("RPC server accept error: %v", err)
			continue
		}
		go s.rpc.ServeConn(conn)
	}
}

// ServeConn serves a single connection, mainly for in-process callers.
func (s *Server) ServeConn(conn net.Conn) {
	s.rpc.ServeConn(conn)
}

// Stop closes the RPC listener.
func (s *Server) Stop() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener != nil {
		logger.Log.Info("Stopping RPC server.")
		s.listener.Close()
		s.listener = nil
	}
}

// GameService is the struct that exposes RPC methods.
type GameService struct {
	records *services.RecordService
}

// NewGameService creates a new GameService.
func NewGameService(records *services.RecordService) *GameService {
	return &GameService{records: records}
}

// Methods follow the net/rpc signature: exported method, exported
// arguments, pointer reply, error result.

type StatsArgs struct {
	AccountID string
}

type StatsReply struct {
	Stats models.AccountStats
}

func (gs *GameService) GetAccountStats(args *StatsArgs, reply *StatsReply) error {
	stats, err := gs.records.GetAccountStats(context.Background(), args.AccountID)
	if err != nil {
		return err
	}
	reply.Stats = stats
	return nil
}

type RecentGamesArgs struct {
	AccountID string
	Limit     int
}

type RecentGamesReply struct {
	Games []models.GameRecord
}

func (gs *GameService) RecentGames(args *RecentGamesArgs, reply *RecentGamesReply) error {
	games, err := gs.records.RecentGames(context.Background(), args.AccountID, args.Limit)
	if err != nil {
		return err
	}
	reply.Games = games
	return nil
}
