package preprocess

import (
	"regexp"
	"sort"
	"strconv"

	"k8s.io/apimachinery/pkg/util/sets"
)

// categoryPatterns groups signatures by the part of the stack they point at.
var categoryPatterns = map[string][]*regexp.Regexp{
	"kubernetes": compileAll(
		`kubectl.*error`,
		`Error from server \(.*\)`,
		`pod.*not found`,
		`deployment.*failed`,
		`CrashLoopBackOff`,
		`ImagePullBackOff`,
	),
	"docker": compileAll(
		`docker.*error`,
		`Error response from daemon`,
		`image.*not found`,
		`container.*exited`,
		`permission denied.*docker`,
	),
	"ci_cd": compileAll(
		`pipeline.*failed`,
		`build.*error`,
		`(jenkins|github actions|gitlab ci|azure devops).*failed`,
		`workflow.*error`,
	),
	"terraform": compileAll(
		`terraform.*error`,
		`Error applying plan`,
		`provider.*error`,
		`resource.*already exists`,
	),
	"cloud": compileAll(
		`aws.*error`,
		`azure.*error`,
		`gcp.*error`,
		`cloud.*permission denied`,
		`access denied`,
		`insufficient permissions`,
	),
	"networking": compileAll(
		`connection.*refused`,
		`timeout`,
		`network.*unreachable`,
		`dns.*error`,
		`no route to host`,
	),
}

var errorCodePatterns = compileAll(
	`error\s+code[:\s]+([A-Z0-9\-_]+)`,
	`exit\s+code[:\s]+(\d+)`,
	`status\s+code[:\s]+(\d+)`,
	`exception\s+code[:\s]+([A-Z0-9\-_]+)`,
)

// Categorize returns the sorted list of categories whose signatures occur
// in text.
func Categorize(text string) []string {
	var out []string
	for name, res := range categoryPatterns {
		for _, re := range res {
			if re.MatchString(text) {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ExtractErrorCodes returns error, exit, status and exception codes in the
// order their pattern families are checked. Repeats are dropped.
func ExtractErrorCodes(text string) []string {
	var codes []string
	seen := sets.New[string]()
	for _, re := range errorCodePatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			if seen.Has(m[1]) {
				continue
			}
			seen.Insert(m[1])
			codes = append(codes, m[1])
		}
	}
	return codes
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile("(?i)" + e)
	}
	return out
}

func itoa(n int) string { return strconv.Itoa(n) }
