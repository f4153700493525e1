// Package tui implements a single-step bytecode debugger: a bubbletea
// program that walks a compiled internal/asm.Assembly instruction by
// instruction against a live vm.Stack, rendering the current
// instruction, program counter, and frame contents.
//
// Grounded on dr8co-kong/repl/repl.go's model/Init/Update/View shape,
// lipgloss style variables, and spinner.Model, repurposed from
// "evaluate language source interactively" to "step a compiled
// instruction stream interactively".
package tui

import (
	"fmt"
	"strings"

	"github.com/VorpalBlade/rune/internal/asm"
	"github.com/VorpalBlade/rune/internal/isa"
	"github.com/VorpalBlade/rune/vm"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true)

	pastStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))

	futureStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8F8F2"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#767676"))
)

// Model is the bubbletea model for the debugger. Start builds one from
// an already-lowered instruction stream and the frame size it needs.
type Model struct {
	entries   []asm.Entry[isa.Inst]
	machine   *vm.VM
	running   bool
	finished  bool
	err       error
	spinner   spinner.Model
	lastState []stackSlot
}

type stackSlot struct {
	addr int
	val  isa.Value
}

// New constructs a debugger model over entries, reserving frameSize
// addresses on the VM's stack before the first step. unit resolves the
// string/byte-string pool OpString/OpByteString reference; pass nil if
// the program being debugged never materializes string literals.
func New(entries []asm.Entry[isa.Inst], frameSize int, unit *isa.Unit) Model {
	machine := vm.New(entries, unit)
	machine.Stack().Resize(frameSize)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF79C6"))

	return Model{
		entries:   entries,
		machine:   machine,
		spinner:   s,
		lastState: snapshotStack(machine, frameSize),
	}
}

// Start runs the debugger as a full-screen bubbletea program.
func Start(entries []asm.Entry[isa.Inst], frameSize int, unit *isa.Unit) error {
	p := tea.NewProgram(New(entries, frameSize, unit))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

type runTickMsg struct{}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "n", " ", "enter":
			m.step()
			return m, nil
		case "r":
			if !m.finished && m.err == nil {
				m.running = true
				return m, tea.Batch(m.spinner.Tick, runStep)
			}
			return m, nil
		}
	case runTickMsg:
		if m.running && !m.finished && m.err == nil {
			m.step()
			return m, runStep
		}
		m.running = false
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func runStep() tea.Msg { return runTickMsg{} }

func (m *Model) step() {
	if m.finished || m.err != nil {
		return
	}
	done, err := m.machine.Step()
	if err != nil {
		m.err = err
		m.running = false
		return
	}
	m.finished = done
	if done {
		m.running = false
	}
	m.lastState = snapshotStack(m.machine, len(m.lastState))
}

func snapshotStack(machine *vm.VM, frameSize int) []stackSlot {
	slots := make([]stackSlot, 0, frameSize)
	for i := 0; i < frameSize; i++ {
		v, err := machine.Stack().At(i)
		if err != nil {
			break
		}
		slots = append(slots, stackSlot{addr: i, val: v})
	}
	return slots
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render(" runec bytecode debugger "))
	s.WriteString("\n\n")

	ip := m.machine.IP()
	for i, e := range m.entries {
		line := fmt.Sprintf("%4d  %s", i, e.Inst)
		switch {
		case i == ip:
			s.WriteString(currentStyle.Render("-> " + line))
		case i < ip:
			s.WriteString(pastStyle.Render("   " + line))
		default:
			s.WriteString(futureStyle.Render("   " + line))
		}
		s.WriteString("\n")
	}

	s.WriteString("\nframe:\n")
	for _, slot := range m.lastState {
		s.WriteString(fmt.Sprintf("  @%d = %s\n", slot.addr, slot.val.String()))
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("error: " + m.err.Error()))
	} else if m.finished {
		s.WriteString("\n")
		s.WriteString(currentStyle.Render("finished"))
	} else if m.running {
		s.WriteString("\n")
		s.WriteString(m.spinner.View() + " running")
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("n: step   r: run to completion   q: quit"))
	return s.String()
}
