/**
 * Pipeline Test Main.
 *
 * Verifies that the worker pools leak no goroutines across the
 * package's tests.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package pipeline

import (
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
