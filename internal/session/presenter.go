package session

import (
	"image"
	"time"
)

// Presenter is the abstract presentation sink. The core never references
// concrete UI elements; an adapter renders these calls on whatever surface
// the platform provides.
type Presenter interface {
	// ShowOverlay replaces the detection overlay with a freshly rendered layer.
	ShowOverlay(layer image.Image)
	// ClearOverlay removes the detection overlay.
	ClearOverlay()
	// ShowAffordance surfaces the stage-1 confirmation control.
	ShowAffordance()
	// HideAffordance removes the stage-1 confirmation control.
	HideAffordance()
	// ShowLoading displays the awaiting-answer indicator.
	ShowLoading()
	// HideLoading removes the awaiting-answer indicator.
	HideLoading()
	// ShowMessage displays transient feedback text for the given duration.
	ShowMessage(text string, d time.Duration)
	// ShowAnswer delivers the server's answer text for the given duration.
	ShowAnswer(text string, d time.Duration)
}

// noopPresenter preserves session flow when no presenter is wired.
type noopPresenter struct{}

func (noopPresenter) ShowOverlay(image.Image)           {}
func (noopPresenter) ClearOverlay()                     {}
func (noopPresenter) ShowAffordance()                   {}
func (noopPresenter) HideAffordance()                   {}
func (noopPresenter) ShowLoading()                      {}
func (noopPresenter) HideLoading()                      {}
func (noopPresenter) ShowMessage(string, time.Duration) {}
func (noopPresenter) ShowAnswer(string, time.Duration)  {}
