package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/beanboi7/chyp8/emu/memory"
	"github.com/beanboi7/chyp8/emu/opcode"
)

var disasmCmd = &cobra.Command{
	Use:   "disasm path/ROM",
	Short: "list a ROM as Chip-8 assembly",
	Args:  cobra.ExactArgs(1),
	RunE:  Disasm,
}

func Disasm(cmd *cobra.Command, args []string) error {
	rom, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	if len(rom) > memory.MaxROMSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", memory.ErrROMTooLarge, len(rom), memory.MaxROMSize)
	}
	return opcode.Disassemble(cmd.OutOrStdout(), memory.ProgramStart, rom)
}

func init() {
	rootCmd.AddCommand(disasmCmd)
}
