package nvim

import (
	"errors"
	"fmt"
	"os"

	"github.com/neovim/go-client/nvim"
	logger "github.com/sirupsen/logrus"
)

// ErrNoInstance is returned when no Neovim address is known.
var ErrNoInstance = errors.New("no Neovim instance to connect to")

// Address returns configured if set, else $NVIM (set inside :terminal), else
// $NVIM_LISTEN_ADDRESS.
func Address(configured string) string {
	if configured != "" {
		return configured
	}
	if addr := os.Getenv("NVIM"); addr != "" {
		return addr
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// Manager handles the connection to a running Neovim instance.
type Manager struct {
	nvim *nvim.Nvim
}

// New connects to the Neovim instance listening on addr.
func New(addr string) (*Manager, error) {
	if addr == "" {
		return nil, ErrNoInstance
	}
	v, err := nvim.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nvim at %s: %w", addr, err)
	}
	return &Manager{nvim: v}, nil
}

// Close disconnects from Neovim.
func (m *Manager) Close() {
	if m.nvim != nil {
		m.nvim.Close()
	}
}

// Checktime asks Neovim to re-read buffers whose files changed on disk.
func (m *Manager) Checktime() error {
	b := m.nvim.NewBatch()
	b.Command("checktime")
	b.Command("redraw")
	return b.Execute()
}

// ReloadBuffers tells the Neovim at addr that files were rewritten. It is a
// no-op when no paths changed or no instance is known.
func ReloadBuffers(addr string, paths []string) error {
	if len(paths) == 0 || addr == "" {
		return nil
	}
	m, err := New(addr)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Checktime(); err != nil {
		return fmt.Errorf("failed to reload buffers: %w", err)
	}
	logger.Debugf("asked nvim at %s to reload %d file(s)", addr, len(paths))
	return nil
}
