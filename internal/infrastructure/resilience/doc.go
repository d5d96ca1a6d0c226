/*
Package resilience provides a circuit breaker for external tools.

The backend shells out to programs it does not control, most notably
ffmpeg. When such a program cannot be started at all, every request would
otherwise pay for a failed exec; the breaker fails those requests fast
until a cooldown passes and a probe succeeds.

# Usage

	breaker := resilience.New("ffmpeg", resilience.Settings{
		Threshold: 3,
		Cooldown:  30 * time.Second,
		Counts: func(err error) bool {
			var exitErr *exec.ExitError
			return !errors.As(err, &exitErr)
		},
	})

	out, err := resilience.Execute(breaker, func() ([]byte, error) {
		return cmd.CombinedOutput()
	})

# States

	Closed --[Threshold failures]-> Open --[Cooldown]-> Half-Open --[Probes successes]-> Closed
	                                                        |
	                                                    [failure]
	                                                        v
	                                                       Open
*/
package resilience
