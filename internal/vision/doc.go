// Package vision locates roster rows in screen-recorded club member lists.
//
// All heuristics work on exact UI colors: a binary mask per color family,
// connected-component denoising, light morphology and contour filtering.
// Images crossing the package boundary are *MatImage values, which satisfy
// image.Image and must be closed by their owner.
package vision
