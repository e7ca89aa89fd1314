// Package assets loads the image sequence shown by the live view.
//
// An asset directory holds a default (idle) image and numbered frames:
//
//	frames/
//	    default.png
//	    frame-1.png
//	    frame-2.png
//	    ...
//	    frame-11.png
//
// PNG, JPEG, BMP, TIFF and WebP files are accepted. Every frame must have
// the default image's pixel dimensions; the render engine rejects
// mismatched frames as data errors.
//
// [Dir] caches decoded frames and can watch its directory with
// [Dir.Watch] so edited files are picked up on the next cycle.
// [Memory] and [Synthetic] provide in-memory sequences.
package assets
