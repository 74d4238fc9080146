package failfast

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"nuxthub/shared"
)

type ErrorLevel int

const (
	Ignore ErrorLevel = iota // log at debug level only
	Warn                     // log a warning and continue
	Error                    // log an error and exit with code 1
)

var failfastLogger = shared.PackageLogger("failfast", "🚨 FAILFAST")

// exit is swapped in tests.
var (
	osExit = os.Exit
	exit   = osExit
)

// Describe turns an error into its headline and follow-up hints.
func Describe(err error) (string, []string) {
	var (
		notFound *shared.NotFoundError
		tooLarge *shared.AssetTooLargeError
		upload   *shared.UploadError
		query    *shared.RemoteQueryError
		apiErr   *shared.APIError
	)

	switch {
	case errors.Is(err, shared.ErrNotLoggedIn):
		return "You are not logged in.", []string{"Run `nuxthub login --token <token>` or set NUXT_HUB_USER_TOKEN."}

	case errors.Is(err, shared.ErrNotLinked):
		return err.Error(), []string{"Run `nuxthub link --team <team> --project <project>` or set NUXT_HUB_PROJECT_KEY."}

	case errors.Is(err, shared.ErrTokenExpired):
		return err.Error(), []string{"The deployment session took too long, run the deploy again."}

	case errors.As(err, &tooLarge):
		hints := make([]string, 0, len(tooLarge.Files))
		for _, f := range tooLarge.Files {
			hints = append(hints, fmt.Sprintf("%s is %s", f.Path, shared.FormatBytes(f.Size)))
		}
		return fmt.Sprintf("Some assets exceed the %s upload limit:", shared.FormatBytes(tooLarge.Limit)), hints

	case errors.As(err, &notFound):
		return err.Error(), nil

	case errors.As(err, &upload):
		return err.Error(), []string{"Uploads are content addressed, re-running the deploy is safe."}

	case errors.As(err, &query):
		var hints []string
		if len(query.Applied) > 0 {
			hints = append(hints, "Applied before the failure: "+strings.Join(query.Applied, ", "))
		}
		if query.Migration != "" {
			hints = append(hints, "Later migrations were not attempted.")
		}
		return err.Error(), hints

	case errors.As(err, &apiErr):
		return err.Error(), apiErr.Issues
	}
	return err.Error(), nil
}

// Failfast reports err according to level. A nil err is a no-op.
func Failfast(err error, level ErrorLevel, message string) {
	if err == nil {
		return
	}
	headline, hints := Describe(err)
	if message != "" {
		headline = message + ": " + headline
	}

	switch level {
	case Ignore:
		failfastLogger.Debug("Ignoring: %s", headline)
	case Warn:
		failfastLogger.Warn("%s", headline)
		for _, h := range hints {
			failfastLogger.Indent().Warn("%s", h)
		}
	default:
		failfastLogger.Error("%s", headline)
		for _, h := range hints {
			failfastLogger.Indent().Error("%s", h)
		}
		exit(1)
	}
}
