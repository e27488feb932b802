package ui

import "image/color"

var (
	colWhite     = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	colBlack     = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	colGray      = color.NRGBA{R: 100, G: 100, B: 100, A: 255}
	colFolder    = color.NRGBA{R: 0, G: 0, B: 128, A: 255}
	colSelected  = color.NRGBA{R: 200, G: 220, B: 255, A: 255}
	colSidebar   = color.NRGBA{R: 245, G: 245, B: 245, A: 255}
	colDisabled  = color.NRGBA{R: 150, G: 150, B: 150, A: 255}
	colDynamic   = color.NRGBA{R: 103, G: 58, B: 183, A: 255} // predicate catalogues
	colHeaderBg  = color.NRGBA{R: 235, G: 235, B: 235, A: 255}
	colToastInfo = color.NRGBA{R: 60, G: 60, B: 60, A: 240}
	colToastErr  = color.NRGBA{R: 200, G: 50, B: 50, A: 240}
	colToastOK   = color.NRGBA{R: 50, G: 160, B: 80, A: 240}
)
