package dataset

// TaskPrompt is the instruction text of every user turn.
const TaskPrompt = "Task: Date Code Analysis\n\n" +
	"You are provided with an image of an injection mold stamp that includes a circular date code used on car parts. " +
	"Your objective is to extract the production date, formatted as MM/YYYY. Follow these steps precisely:\n\n" +
	"1. **Edge Numbers Sequence:**\n" +
	"   - Identify and list all numbers arranged around the edge of the circle in clockwise order.\n" +
	"   - Verify that these numbers form the standard sequence from 1 through 12.\n\n" +
	"2. **Target Number Identification:**\n" +
	"   - Determine the exact number that the arrow points to; this represents the target month.\n" +
	"   - Confirm that the number immediately preceding the target is the previous month and the number immediately following is the next month (e.g., if the target is 6, then 5 should precede it and 7 should follow).\n\n" +
	"3. **Arrow Orientation and Year Digits:**\n" +
	"   - Note the direction in which the arrow points (e.g., left, right, up, down).\n" +
	"   - Based on the arrow's direction, read the digit from the side corresponding to the arrow as the decade digit, and the digit from the opposite side as the year digit.\n" +
	"     - *Example:* If the arrow points left, use the top digit as the decade and the bottom digit as the year unit.\n" +
	"     - Adjust appropriately for other orientations.\n\n" +
	"4. **Full Year Calculation:**\n" +
	"   - Combine the decade digit and the year digit to form the complete year (e.g., decade digit '2' and year digit '1' yield 2021).\n\n" +
	"5. **Validation:**\n" +
	"   - Redo all the above steps independently to ensure consistency in your result.\n\n" +
	"**Final Output Requirements:**\n" +
	"- The response must include only the final answer in both formats:\n" +
	"   - Textual: \"Month YYYY\" (e.g., February 2021)\n" +
	"   - Numeric: \"MM/YYYY\" (e.g., 02/2021)\n\n" +
	"Do not include any additional explanations, validations, or step-by-step reasoning in your output.\n\n" +
	"**Example Input:**\n" +
	"[Image provided below]\n\n" +
	"**Example Final Answer:**\n" +
	"02/2021"
