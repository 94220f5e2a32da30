package client

import (
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redlinedb/redline/pkg/respio"
)

// fakeServer is a minimal in-process RESP server backed by a string map.
// It speaks just enough of the protocol for the client tests: strings,
// hashes, counters and the MULTI/EXEC bracket.
type fakeServer struct {
	t  *testing.T
	ln net.Listener

	mu   sync.Mutex
	data map[string]string
	hash map[string]map[string]string

	// slowCmd delays the named command to hold a connection busy.
	slowCmd   string
	slowDelay time.Duration
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeServer{
		t:    t,
		ln:   ln,
		data: make(map[string]string),
		hash: make(map[string]map[string]string),
	}
	go s.acceptLoop()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeServer) addr() (string, int) {
	tcpAddr := s.ln.Addr().(*net.TCPAddr)
	return tcpAddr.IP.String(), tcpAddr.Port
}

func (s *fakeServer) config() *Config {
	host, port := s.addr()
	return &Config{
		Host:             host,
		Port:             port,
		DisableReconnect: true,
	}
}

func (s *fakeServer) acceptLoop() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.serveConn(conn)
	}
}

func (s *fakeServer) serveConn(conn net.Conn) {
	defer conn.Close()
	reader := respio.NewRespReader(conn)
	writer := respio.NewRespWriter(conn)

	inTx := false
	var queued [][]string
	for {
		pkt, err := reader.Read()
		if err != nil {
			return
		}
		args := make([]string, 0, len(pkt.Array))
		for _, elem := range pkt.Array {
			args = append(args, string(elem.Data))
		}
		if len(args) == 0 {
			_ = writer.WriteError("ERR empty command")
			_ = writer.Flush()
			continue
		}
		cmd := strings.ToUpper(args[0])

		switch cmd {
		case "MULTI":
			inTx = true
			queued = nil
			_ = writer.WriteStatus("OK")
		case "EXEC":
			inTx = false
			replies := make([]*respio.RespPacket, 0, len(queued))
			for _, qArgs := range queued {
				replies = append(replies, s.eval(qArgs))
			}
			queued = nil
			_ = writer.WriteArray(replies)
		case "DISCARD":
			inTx = false
			queued = nil
			_ = writer.WriteStatus("OK")
		default:
			if inTx {
				queued = append(queued, args)
				_ = writer.WriteStatus("QUEUED")
				break
			}
			_ = writer.Write(s.eval(args))
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}

func (s *fakeServer) eval(args []string) *respio.RespPacket {
	cmd := strings.ToUpper(args[0])
	s.mu.Lock()
	slow := s.slowCmd
	delay := s.slowDelay
	s.mu.Unlock()
	if slow != "" && cmd == slow {
		time.Sleep(delay)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd {
	case "PING":
		return &respio.RespPacket{Type: respio.RespStatus, Data: []byte("PONG")}
	case "SET":
		s.data[args[1]] = args[2]
		return &respio.RespPacket{Type: respio.RespStatus, Data: respio.OkReply}
	case "GET":
		val, ok := s.data[args[1]]
		if !ok {
			return &respio.RespPacket{Type: respio.RespString}
		}
		return &respio.RespPacket{Type: respio.RespString, Data: []byte(val)}
	case "DEL":
		deleted := int64(0)
		for _, key := range args[1:] {
			if _, ok := s.data[key]; ok {
				delete(s.data, key)
				deleted++
			}
		}
		return intPacket(deleted)
	case "EXISTS":
		found := int64(0)
		for _, key := range args[1:] {
			if _, ok := s.data[key]; ok {
				found++
			}
		}
		return intPacket(found)
	case "INCR", "INCRBY":
		by := int64(1)
		if len(args) > 2 {
			by, _ = strconv.ParseInt(args[2], 10, 64)
		}
		cur, _ := strconv.ParseInt(s.data[args[1]], 10, 64)
		cur += by
		s.data[args[1]] = strconv.FormatInt(cur, 10)
		return intPacket(cur)
	case "HSET":
		fields, ok := s.hash[args[1]]
		if !ok {
			fields = make(map[string]string)
			s.hash[args[1]] = fields
		}
		added := int64(0)
		if _, exists := fields[args[2]]; !exists {
			added = 1
		}
		fields[args[2]] = args[3]
		return intPacket(added)
	case "HGETALL":
		fields := s.hash[args[1]]
		items := make([]*respio.RespPacket, 0, 2*len(fields))
		for f, v := range fields {
			items = append(items,
				&respio.RespPacket{Type: respio.RespString, Data: []byte(f)},
				&respio.RespPacket{Type: respio.RespString, Data: []byte(v)})
		}
		return &respio.RespPacket{Type: respio.RespArray, Array: items}
	default:
		return &respio.RespPacket{Type: respio.RespError, Data: []byte("ERR unknown command '" + args[0] + "'")}
	}
}

func intPacket(n int64) *respio.RespPacket {
	return &respio.RespPacket{Type: respio.RespInt, Data: []byte(strconv.FormatInt(n, 10))}
}

func (s *fakeServer) setSlow(cmd string, delay time.Duration) {
	s.mu.Lock()
	s.slowCmd = strings.ToUpper(cmd)
	s.slowDelay = delay
	s.mu.Unlock()
}

func dialTestConn(t *testing.T, s *fakeServer) *Conn {
	t.Helper()
	conn, err := Dial(s.config())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
