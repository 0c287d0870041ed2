package lifecycle

import (
	"path/filepath"
	"regexp"

	"github.com/iop-apl-uw/glidermon/internal/session"
)

// missionDirIDRE extracts the numeric glider id from a mission directory
// name following the basestation convention (e.g. "sg042" or "SG042-jan26").
var missionDirIDRE = regexp.MustCompile(`(?i)sg0*([0-9]+)`)

// resolveGliderID implements §4.8 step "if glider id is still unknown,
// resolve it from the Session or from the historical session list": the
// reducer never populates Session.GliderID itself (nothing in the comm log
// format names the glider), so the controller falls back to the open
// session, then the most recent completed session, then the mission
// directory name, which basestation convention encodes as sgNNN.
func resolveGliderID(commLog *session.CommLog, missionDir string) string {
	if commLog.Current != nil && commLog.Current.GliderID != "" {
		return commLog.Current.GliderID
	}
	for i := len(commLog.Sessions) - 1; i >= 0; i-- {
		if commLog.Sessions[i].GliderID != "" {
			return commLog.Sessions[i].GliderID
		}
	}
	if m := missionDirIDRE.FindStringSubmatch(filepath.Base(missionDir)); m != nil {
		return m[1]
	}
	return ""
}
