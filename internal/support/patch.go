package support

// PatchVersion — версия прошивки, раскатываемая по OTA
const PatchVersion = "1.3"

// DeployPatch Раскатка OTA симулируется и всегда успешна.
func DeployPatch() string {
	return "PATCH_V1.3_SUCCESS"
}
