package configdef

var HasDupCameraTitles = hasDupCameraTitles
