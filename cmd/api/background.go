package main

// background runs fn on its own goroutine, recovering panics so a failed
// push or receipt send never takes the server down. The wait group lets
// graceful shutdown drain in-flight sends.
func (app *application) background(fn func()) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.Errorw("background task panicked", "error", err)
			}
		}()

		fn()
	}()
}
