package constants

const (
	DefaultVerseReference = "Gálatas 6:9"
	DefaultVerseText      = "E não nos cansemos de fazer o bem, pois no tempo próprio colheremos, se não desanimarmos."
)
