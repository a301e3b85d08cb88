// Command cursorhide-check is an interactive manual test: it hides the
// pointer for a few seconds, shows it again and asks the operator whether
// both happened.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cursorhide/cursorhide/internal/config"
	"github.com/cursorhide/cursorhide/internal/controller"
	"github.com/cursorhide/cursorhide/internal/logging"
	"github.com/cursorhide/cursorhide/pkg/backend"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		mode     string
		duration time.Duration
	)

	cmd := &cobra.Command{
		Use:           "cursorhide-check",
		Short:         "Manually verify that the pointer can be hidden and shown",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
				return errors.New("stdin is not a terminal; run this check interactively")
			}

			modes := []string{config.ModeToggle, config.ModeGlyph}
			if mode != "both" {
				modes = []string{mode}
			}

			in := bufio.NewReader(os.Stdin)
			passed := true
			for _, m := range modes {
				ok, err := check(in, m, duration)
				if err != nil {
					logrus.Errorf("Check for %s mode failed: %v", m, err)
					fmt.Printf("\nTest incomplete (%s mode): %v\n", m, err)
					os.Exit(1)
				}
				passed = passed && ok
			}

			if !passed {
				fmt.Println("\nTest failed.")
				os.Exit(1)
			}
			fmt.Println("\nTest complete.")
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "both", "Mode to check: toggle, glyph or both")
	cmd.Flags().DurationVar(&duration, "duration", 3*time.Second, "How long the pointer stays hidden")

	logging.Setup("info")
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "cursorhide-check: %v\n", err)
		os.Exit(1)
	}
}

// check runs one hide/show cycle. Panics from the backend are turned into
// errors so the pointer restore in the deferred Stop always runs.
func check(in *bufio.Reader, mode string, duration time.Duration) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	cfg := config.Default()
	cfg.Controller.Mode = mode
	if err := cfg.Validate(); err != nil {
		return false, err
	}

	svc, err := backend.New()
	if err != nil {
		return false, errors.Wrap(err, "failed to initialize pointer backend")
	}
	defer svc.Close()

	ctrl := controller.New(cfg, svc, nil)
	defer ctrl.Stop()

	fmt.Printf("\n[%s mode on %s]\n", mode, svc.DisplayServer())
	fmt.Printf("The pointer will be hidden for %v, then shown again.\n", duration)
	fmt.Print("Keep the mouse still and press Enter to start...")
	if _, err := in.ReadString('\n'); err != nil {
		return false, errors.Wrap(err, "read input")
	}

	if err := ctrl.Hide(); err != nil {
		return false, errors.Wrap(err, "hide")
	}
	fmt.Println("Pointer should be hidden now.")
	time.Sleep(duration)

	if err := ctrl.Show(); err != nil {
		return false, errors.Wrap(err, "show")
	}
	fmt.Println("Pointer should be visible now.")

	return confirm(in, "Did the pointer disappear and then reappear?")
}

func confirm(in *bufio.Reader, question string) (bool, error) {
	fmt.Printf("%s (yes/no): ", question)
	answer, err := in.ReadString('\n')
	if err != nil {
		return false, errors.Wrap(err, "read input")
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
