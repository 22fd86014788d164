package browser

import "github.com/Gawain27/PubScraper/engine/domain"

// ApplyCaptchaPolicy reacts to a detected captcha challenge per the
// configured domain.CaptchaAction. captchaPresent is false for a no-op.
func ApplyCaptchaPolicy(action domain.CaptchaAction, captchaPresent bool) error {
	if !captchaPresent {
		return nil
	}
	switch action {
	case domain.CaptchaIgnore:
		return domain.ErrIgnoreCaptcha
	case domain.CaptchaBypass:
		// An external solver is out of scope; BYPASS means "proceed as if
		// solved" so the caller returns whatever page source it already
		// has rather than failing the fetch.
		return nil
	case domain.CaptchaWaitUser:
		// No interactive operator exists in this headless deployment;
		// WAIT_USER is accepted configuration but not implementable here.
		return domain.ErrUnimplementedCaptcha
	default:
		return domain.ErrUnimplementedCaptcha
	}
}
