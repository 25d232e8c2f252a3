// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"strings"
	"sync"
)

// hotReloadListener owns the TCP listener backing Manager.Listen.
type hotReloadListener struct {
	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func (h *hotReloadListener) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	h.ln.Close()
}

// Listen opens a TCP listener at host:port; each newline-terminated
// line it receives names an asset to hot-reload, per §4.3/§6. A
// disconnected or closed listener silently stops further reloads,
// matching the original's "server-side disconnects silently
// terminate listening".
func (m *Manager) Listen(host string, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return err
	}
	m.listener = &hotReloadListener{ln: ln}
	go m.acceptLoop(m.listener)
	return nil
}

func (m *Manager) acceptLoop(h *hotReloadListener) {
	for {
		conn, err := h.ln.Accept()
		if err != nil {
			return
		}
		go m.serveHotReload(conn)
	}
}

func (m *Manager) serveHotReload(conn net.Conn) {
	defer conn.Close()
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		m.hotReloadOne(line)
	}
}

func (m *Manager) hotReloadOne(textName string) {
	name := Hash(textName)
	rec, ok := m.lookup(name)
	if !ok || rec.References() == 0 {
		log.Printf(prefix+"assets: %q will not be hot-reloaded: unreferenced or unknown", textName)
		return
	}
	if err := m.Reload(name, false); err != nil {
		log.Printf(prefix+"assets: hot-reload of %q failed: %v", textName, err)
	}
}
