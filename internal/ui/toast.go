package ui

import (
	"image"
	"time"

	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"
)

type ToastType int

const (
	ToastInfo ToastType = iota
	ToastSuccess
	ToastError
)

// toast is a transient message at the bottom of the window, used for
// failed actions and saves.
type toast struct {
	message   string
	kind      ToastType
	expiresAt time.Time
}

const toastDuration = 3 * time.Second

// ShowToast displays a message that dismisses itself. Call it from the
// window goroutine.
func (r *Renderer) ShowToast(message string, kind ToastType) {
	r.toast = toast{message: message, kind: kind, expiresAt: time.Now().Add(toastDuration)}
}

func (r *Renderer) ShowError(message string)   { r.ShowToast(message, ToastError) }
func (r *Renderer) ShowSuccess(message string) { r.ShowToast(message, ToastSuccess) }

func (r *Renderer) layoutToast(gtx layout.Context) layout.Dimensions {
	t := r.toast
	if t.message == "" || time.Now().After(t.expiresAt) {
		return layout.Dimensions{}
	}
	gtx.Execute(op.InvalidateCmd{At: t.expiresAt})

	bg := colToastInfo
	switch t.kind {
	case ToastError:
		bg = colToastErr
	case ToastSuccess:
		bg = colToastOK
	}

	return layout.S.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Inset{Bottom: unit.Dp(20)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			gtx.Constraints.Max.X = min(gtx.Constraints.Max.X, gtx.Dp(unit.Dp(500)))
			gtx.Constraints.Min = image.Point{}

			macro := op.Record(gtx.Ops)
			dims := layout.Inset{
				Top: unit.Dp(12), Bottom: unit.Dp(12), Left: unit.Dp(16), Right: unit.Dp(16),
			}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				lbl := material.Body1(r.Theme, t.message)
				lbl.Color = colWhite
				return lbl.Layout(gtx)
			})
			call := macro.Stop()

			rr := gtx.Dp(unit.Dp(8))
			paint.FillShape(gtx.Ops, bg, clip.RRect{
				Rect: image.Rectangle{Max: dims.Size},
				NE:   rr, NW: rr, SE: rr, SW: rr,
			}.Op(gtx.Ops))
			call.Add(gtx.Ops)
			return dims
		})
	})
}
