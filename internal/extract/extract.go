// Package extract turns raw manifest URLs and player scripts into playable
// stream URLs, and defines the error taxonomy shared by every extraction
// stage.
package extract
